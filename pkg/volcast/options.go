package volcast

import (
	"path/filepath"

	"github.com/crimson-sun/volcast/internal/engine/similarity"
)

type options struct {
	modelsDir         string
	bundleDir         string
	libPath           string
	intraOpThreads    int
	missingCloseEarly bool

	corpusPath string
	corpus     []Event
	cap        int
	diversity  similarity.DiversityKey

	err error
}

// Option configures a Volcast instance.
type Option func(*options)

// WithModelsDir sets the directory holding the sentence model directory and,
// unless WithBundleDir is given, the bundle under bundle/.
func WithModelsDir(dir string) Option {
	return func(o *options) { o.modelsDir = dir }
}

// WithBundleDir sets the directory containing bundle.json.
func WithBundleDir(dir string) Option {
	return func(o *options) { o.bundleDir = dir }
}

// WithLibraryPath sets the ONNX Runtime shared library. By default it is
// searched for next to the models.
func WithLibraryPath(path string) Option {
	return func(o *options) { o.libPath = path }
}

// WithIntraOpThreads caps the threads each ONNX session uses.
func WithIntraOpThreads(n int) Option {
	return func(o *options) { o.intraOpThreads = n }
}

// WithMissingCloseEarlyAsNaN feeds NaN instead of 0 to the model when an
// event does not say whether it can close early.
func WithMissingCloseEarlyAsNaN() Option {
	return func(o *options) { o.missingCloseEarly = true }
}

// WithCorpusPath loads the settled-event corpus used by Compare. A missing
// or corrupt file yields an empty corpus.
func WithCorpusPath(path string) Option {
	return func(o *options) { o.corpusPath = path }
}

// WithCorpus sets the settled-event corpus directly.
func WithCorpus(events []Event) Option {
	return func(o *options) { o.corpus = events }
}

// WithCap sets the maximum number of comparable events. Default: 8.
func WithCap(n int) Option {
	return func(o *options) { o.cap = n }
}

// WithDiversityKey sets which field comparable events must not repeat:
// "series" (default), "category" or "both".
func WithDiversityKey(key string) Option {
	return func(o *options) {
		k, err := similarity.ParseDiversityKey(key)
		if err != nil {
			o.err = err
			return
		}
		o.diversity = k
	}
}

func defaultOptions() options {
	return options{
		modelsDir:      "models",
		intraOpThreads: 4,
		cap:            similarity.DefaultCap,
		diversity:      similarity.DiversitySeries,
	}
}

func (o options) resolvedBundleDir() string {
	if o.bundleDir != "" {
		return o.bundleDir
	}
	return filepath.Join(o.modelsDir, "bundle")
}
