/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/acronis/go-migratekit"
)

// Default option values.
const (
	DefaultSchema     = "public"
	DefaultTable      = "schema_version"
	DefaultEncoding   = "utf-8"
	DefaultRetryCount = 3
	DefaultRetryDelay = time.Second
)

// DefaultFilePattern matches files named "<version>[_<text>].sql" or "<version>[-<text>].sql",
// where version is "<major>.<minor>.<patch>". So "1.0.0-orders.sql" has version "1.0.0".
const DefaultFilePattern = `^(?P<version>\d+\.\d+\.\d+)(?:[_-].*)?\.sql$`

// PreReleaseFilePattern matches files named "<version>[_<text>].sql" where version may carry
// a pre-release and build metadata ("2.0.0-rc1_users.sql" has version "2.0.0-rc1").
// Only "_" separates the text here. Use it with WithPattern.
const PreReleaseFilePattern = `^(?P<version>\d+\.\d+\.\d+(?:-[0-9A-Za-z.]+)?(?:\+[0-9A-Za-z.]+)?)(?:_.*)?\.sql$`

// DefaultDirectoryPattern matches any file inside a version directory.
const DefaultDirectoryPattern = `^.+$`

// VersionGroupName is the name of the capture group that holds the version in file mode patterns.
const VersionGroupName = "version"

// Options is an immutable configuration of the migration engine.
// Use NewOptions to create it and Options.With to derive a modified copy.
type Options struct {
	root          string
	directoryMode bool
	checksum      bool
	patternSrc    string
	pattern       *regexp.Regexp
	encodingName  string
	encoding      encoding.Encoding
	schema        string
	table         string
	retryCount    int
	retryDelay    time.Duration
	lockKey       string
	timeout       time.Duration
	fs            afero.Fs
}

// Option is a functional option for NewOptions and Options.With.
type Option func(*Options)

// WithDirectoryMode switches between file mode (every file in the root is a migration named after its version)
// and directory mode (every sub-directory of the root is named after a version and contains migration files).
func WithDirectoryMode(enabled bool) Option {
	return func(o *Options) {
		o.directoryMode = enabled
	}
}

// WithChecksum enables or disables computing of SHA-256 checksums of migration files.
func WithChecksum(enabled bool) Option {
	return func(o *Options) {
		o.checksum = enabled
	}
}

// WithPattern sets a custom regular expression for migration file names.
// In file mode it must contain the "version" named group. An empty string restores the default pattern.
func WithPattern(pattern string) Option {
	return func(o *Options) {
		o.patternSrc = pattern
	}
}

// WithEncoding sets the encoding of migration files (any name known to the WHATWG Encoding Standard).
// Contents are converted to UTF-8 before they are passed to the adapter.
func WithEncoding(name string) Option {
	return func(o *Options) {
		o.encodingName = name
	}
}

// WithSchema sets the schema that holds the version table.
func WithSchema(schema string) Option {
	return func(o *Options) {
		o.schema = schema
	}
}

// WithTable sets the name of the version table.
func WithTable(table string) Option {
	return func(o *Options) {
		o.table = table
	}
}

// WithRetry sets how many times a failed operation is retried and the delay between attempts.
func WithRetry(count int, delay time.Duration) Option {
	return func(o *Options) {
		o.retryCount = count
		o.retryDelay = delay
	}
}

// WithLockKey overrides the key of the migration lock.
func WithLockKey(key string) Option {
	return func(o *Options) {
		o.lockKey = key
	}
}

// WithTimeout sets an advisory timeout for adapters (e.g., per-statement timeout). Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.timeout = timeout
	}
}

// WithFs sets the filesystem migration files are read from. The OS filesystem is used by default.
func WithFs(fs afero.Fs) Option {
	return func(o *Options) {
		o.fs = fs
	}
}

// NewOptions creates Options for migrations stored under the root path.
// The pattern and the encoding are validated here, so a misconfiguration is reported before any migration starts.
func NewOptions(root string, opts ...Option) (Options, error) {
	o := Options{
		root:         root,
		checksum:     true,
		encodingName: DefaultEncoding,
		schema:       DefaultSchema,
		table:        DefaultTable,
		retryCount:   DefaultRetryCount,
		retryDelay:   DefaultRetryDelay,
	}
	return o.With(opts...)
}

// With returns a copy of the options with the given overrides applied.
func (o Options) With(opts ...Option) (Options, error) {
	for _, opt := range opts {
		opt(&o)
	}
	if o.root == "" {
		return Options{}, fmt.Errorf("migration root cannot be empty")
	}
	if o.retryCount < 0 {
		return Options{}, fmt.Errorf("retry count cannot be negative")
	}
	if o.retryDelay < 0 {
		return Options{}, fmt.Errorf("retry delay cannot be negative")
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}

	pattern, err := compilePattern(o.patternSrc, o.directoryMode)
	if err != nil {
		return Options{}, err
	}
	o.pattern = pattern

	if o.encodingName == "" {
		o.encodingName = DefaultEncoding
	}
	if o.encoding, err = htmlindex.Get(o.encodingName); err != nil {
		return Options{}, fmt.Errorf("%w %q: %v", ErrInvalidEncoding, o.encodingName, err)
	}

	return o, nil
}

func compilePattern(src string, directoryMode bool) (*regexp.Regexp, error) {
	if src == "" {
		if directoryMode {
			return regexp.MustCompile(DefaultDirectoryPattern), nil
		}
		return regexp.MustCompile(DefaultFilePattern), nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, src, err)
	}
	if !directoryMode && re.SubexpIndex(VersionGroupName) < 0 {
		return nil, fmt.Errorf("%w %q: named group %q is required in file mode", ErrInvalidPattern, src, VersionGroupName)
	}
	return re, nil
}

// Root returns the path to the migrations root.
func (o Options) Root() string { return o.root }

// DirectoryMode reports whether migrations are grouped into version directories.
func (o Options) DirectoryMode() bool { return o.directoryMode }

// ChecksumEnabled reports whether checksums of migration files are computed and verified.
func (o Options) ChecksumEnabled() bool { return o.checksum }

// Pattern returns the compiled pattern for migration file names.
func (o Options) Pattern() *regexp.Regexp { return o.pattern }

// Encoding returns the name of the migration files encoding.
func (o Options) Encoding() string { return o.encodingName }

// Schema returns the schema of the version table.
func (o Options) Schema() string { return o.schema }

// Table returns the name of the version table.
func (o Options) Table() string { return o.table }

// RetryCount returns how many times a failed operation is retried.
func (o Options) RetryCount() int { return o.retryCount }

// RetryDelay returns the delay between retries.
func (o Options) RetryDelay() time.Duration { return o.retryDelay }

// RetryPolicy returns the retry policy built from the retry count and delay.
func (o Options) RetryPolicy() migratekit.RetryPolicy {
	return migratekit.NewConstantRetryPolicy(o.retryDelay, o.retryCount)
}

// Timeout returns the advisory timeout for adapters.
func (o Options) Timeout() time.Duration { return o.timeout }

// Fs returns the filesystem migration files are read from.
func (o Options) Fs() afero.Fs { return o.fs }

// LockKey returns the key of the migration lock, "migration:<schema>.<table>" unless overridden.
func (o Options) LockKey() string {
	if o.lockKey != "" {
		return o.lockKey
	}
	return fmt.Sprintf("migration:%s.%s", o.schema, o.table)
}

// decode converts migration file contents to UTF-8.
func (o Options) decode(content []byte) ([]byte, error) {
	if name, _ := htmlindex.Name(o.encoding); name == DefaultEncoding {
		return content, nil
	}
	decoded, err := o.encoding.NewDecoder().Bytes(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", o.encodingName, err)
	}
	return decoded, nil
}
