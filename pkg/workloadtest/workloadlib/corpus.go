package workloadlib

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/git"
	"github.com/arkcompiler/workload-tools/pkg/results"
)

// CorpusCheckout is a local clone of the workload corpus.
type CorpusCheckout interface {
	Directory() string
	Clean(ctx context.Context) error
	Pull(ctx context.Context) error
	Checkout(ctx context.Context, commitlike string) error
	RevParse(ctx context.Context, commitlike string) (string, error)
}

// CorpusRepository clones the corpus or opens an existing clone.
type CorpusRepository interface {
	Clone(ctx context.Context, url, dir string) (CorpusCheckout, error)
	Open(dir string) CorpusCheckout
}

type gitRepository struct {
	client *git.Client
}

// NewGitRepository serves the corpus through the git binary.
func NewGitRepository(client *git.Client) CorpusRepository {
	return &gitRepository{client: client}
}

func (r *gitRepository) Clone(ctx context.Context, url, dir string) (CorpusCheckout, error) {
	repo, err := r.client.Clone(ctx, url, dir)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *gitRepository) Open(dir string) CorpusCheckout {
	return r.client.Open(dir)
}

// PrepareCorpus brings the corpus under codePath to the pinned revision and
// returns its directory. A missing corpus is cloned, an existing one has its
// local changes discarded and is pulled before the checkout. The resolved
// HEAD is logged so runs can be traced to a corpus commit. Files matching
// the executable patterns are made executable afterwards.
func PrepareCorpus(ctx context.Context, fs afero.Fs, repos CorpusRepository, config api.CorpusConfig, codePath string) (string, error) {
	dataDir := filepath.Join(codePath, config.Directory)
	logger := logrus.WithFields(logrus.Fields{"dir": dataDir, "revision": config.Revision})

	var checkout CorpusCheckout
	exists, err := afero.DirExists(fs, filepath.Join(dataDir, ".git"))
	if err != nil {
		return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("could not inspect corpus at %s", dataDir)
	}
	if !exists {
		logger.Info("Corpus not found, cloning.")
		if checkout, err = repos.Clone(ctx, config.GitURL, dataDir); err != nil {
			return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("could not clone corpus from %s", config.GitURL)
		}
	} else {
		logger.Info("Updating existing corpus.")
		checkout = repos.Open(dataDir)
		if err := checkout.Clean(ctx); err != nil {
			return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("could not discard local corpus changes")
		}
		if err := checkout.Pull(ctx); err != nil {
			return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("could not update corpus")
		}
	}
	if err := checkout.Checkout(ctx, config.Revision); err != nil {
		return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("could not check out corpus revision %s", config.Revision)
	}
	head, err := checkout.RevParse(ctx, "HEAD")
	if err != nil {
		return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("could not resolve corpus HEAD")
	}
	logger.WithField("head", head).Info("Corpus is ready.")

	for _, pattern := range config.ExecutablePatterns {
		matches, err := afero.Glob(fs, filepath.Join(dataDir, pattern))
		if err != nil {
			return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("invalid executable pattern %q", pattern)
		}
		for _, match := range matches {
			if err := makeExecutable(fs, match); err != nil {
				return "", results.ForReason(results.ReasonCorpusPreparation).WithError(err).Errorf("could not make %s executable", match)
			}
		}
	}
	return dataDir, nil
}

func makeExecutable(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return fs.Chmod(path, info.Mode().Perm()|0111)
}
