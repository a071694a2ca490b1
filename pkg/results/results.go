package results

type Reason string

const (
	// ReasonUnknown is default reason. Occurrences of this reason in outcome
	// reports indicate a failure to classify an error somewhere.
	ReasonUnknown Reason = "unknown"

	// ReasonLoadingConfig is used when the workload configuration cannot be loaded.
	ReasonLoadingConfig Reason = "loading_config"
	// ReasonCorpusPreparation is used when the workload corpus cannot be cloned,
	// updated or checked out.
	ReasonCorpusPreparation Reason = "corpus_preparation"
	// ReasonToolchainConfig is used when the toolchain pointer file cannot be written.
	ReasonToolchainConfig Reason = "toolchain_config"

	// ReasonDriverNotFound is used when the driver or its shell does not exist.
	ReasonDriverNotFound Reason = "driver_not_found"
	// ReasonDriverPermissionDenied is used when the driver cannot be executed.
	ReasonDriverPermissionDenied Reason = "driver_permission_denied"
	// ReasonDriverFailed is used when the driver exits with a non-zero code.
	ReasonDriverFailed Reason = "driver_failed"

	// ReasonInputFormat is used when a result file name or its content
	// does not have the expected shape.
	ReasonInputFormat Reason = "input_format"
	// ReasonRowCountMismatch is used when the two compared result files
	// hold a different number of cases.
	ReasonRowCountMismatch Reason = "row_count_mismatch"
	// ReasonDivisionByZero is used for a case whose newer average is zero.
	ReasonDivisionByZero Reason = "division_by_zero"
	// ReasonIOFailure is used when report inputs or artifacts cannot be read or written.
	ReasonIOFailure Reason = "io_failure"
)
