/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/spf13/afero"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/version"
)

// DefaultLockReleaseTimeout is the default time limit for releasing the migration lock.
const DefaultLockReleaseTimeout = 30 * time.Second

// Migrator plans and executes migrations against a store represented by an Adapter.
// It keeps no state between calls, so one Migrator may be used for any number of runs.
type Migrator[Tx any] struct {
	adapter Adapter[Tx]
	opts    Options
	logger  log.FieldLogger
	settings
}

type settings struct {
	metrics            MetricsCollector
	observer           StateObserver
	now                func() time.Time
	lockReleaseTimeout time.Duration
}

// MigratorOption is a functional option for NewMigrator.
type MigratorOption func(*settings)

// WithMetrics sets a collector of migration run metrics.
func WithMetrics(collector MetricsCollector) MigratorOption {
	return func(s *settings) {
		s.metrics = collector
	}
}

// WithStateObserver sets a function that is called on every state transition of a run.
func WithStateObserver(observer StateObserver) MigratorOption {
	return func(s *settings) {
		s.observer = observer
	}
}

// WithClock sets the source of time used for Result timestamps.
func WithClock(now func() time.Time) MigratorOption {
	return func(s *settings) {
		s.now = now
	}
}

// WithLockReleaseTimeout limits the time spent on releasing the migration lock.
func WithLockReleaseTimeout(timeout time.Duration) MigratorOption {
	return func(s *settings) {
		s.lockReleaseTimeout = timeout
	}
}

// NewMigrator creates a new Migrator.
func NewMigrator[Tx any](adapter Adapter[Tx], opts Options, logger log.FieldLogger, migratorOpts ...MigratorOption) (*Migrator[Tx], error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if opts.pattern == nil {
		return nil, fmt.Errorf("options must be created by NewOptions")
	}
	m := &Migrator[Tx]{
		adapter: adapter,
		opts:    opts,
		logger:  logger,
		settings: settings{
			metrics:            noopMetrics{},
			now:                time.Now,
			lockReleaseTimeout: DefaultLockReleaseTimeout,
		},
	}
	for _, opt := range migratorOpts {
		opt(&m.settings)
	}
	if m.metrics == nil {
		m.metrics = noopMetrics{}
	}
	return m, nil
}

// Options returns the options of the Migrator.
func (m *Migrator[Tx]) Options() Options {
	return m.opts
}

// CallOption is a functional option for a single Migrator call.
type CallOption func(*callSettings)

type callSettings struct {
	currentSet bool
	current    string
	checksum   string
}

// WithCurrentVersion makes the call use the given current version and its checksum
// instead of querying them from the adapter. The empty version means that no version is applied.
func WithCurrentVersion(ver, checksum string) CallOption {
	return func(s *callSettings) {
		s.currentSet = true
		s.current = ver
		s.checksum = checksum
	}
}

// Migrate brings the store to the target version.
//
// The whole run holds the migration lock (if the adapter implements Locker).
// Migration files between the current and the target versions are executed in one transaction,
// in ascending order for upgrade and in descending order for downgrade, and the target version is saved
// in the same transaction. If the target version is already applied, its checksum is verified instead.
func (m *Migrator[Tx]) Migrate(ctx context.Context, target string, opts ...CallOption) (*Result, error) {
	targetVer, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, targetVer, opts)
}

// Reset downgrades the store through the whole history of migrations. The stored version becomes empty.
func (m *Migrator[Tx]) Reset(ctx context.Context, opts ...CallOption) (*Result, error) {
	return m.run(ctx, version.Origin, opts)
}

// QueryMigrationFiles returns the plan that Migrate would execute for the target version in the given direction.
// It neither takes the lock nor changes the store.
func (m *Migrator[Tx]) QueryMigrationFiles(ctx context.Context, target string, upgradable bool, opts ...CallOption) (*Plan, error) {
	targetVer, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	call, err := newCallSettings(opts)
	if err != nil {
		return nil, err
	}
	current, _, err := m.resolveCurrent(ctx, call)
	if err != nil {
		return nil, err
	}
	return BuildPlan(m.opts, current, targetVer, upgradable)
}

// VersionChecksum is a version of a plan and the aggregate checksum of its files.
type VersionChecksum struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
}

// QueryMigrationVersions returns versions of the plan for the target version in execution order.
func (m *Migrator[Tx]) QueryMigrationVersions(
	ctx context.Context, target string, upgradable bool, opts ...CallOption,
) ([]VersionChecksum, error) {
	plan, err := m.QueryMigrationFiles(ctx, target, upgradable, opts...)
	if err != nil {
		return nil, err
	}
	versions := make([]VersionChecksum, 0, len(plan.Groups))
	for _, g := range plan.Groups {
		versions = append(versions, VersionChecksum{Name: g.Version.String(), Checksum: g.Checksum()})
	}
	return versions, nil
}

func parseTarget(target string) (version.Version, error) {
	if target == "" {
		return version.Version{}, &InvalidVersionError{Role: "target", Value: target, Err: fmt.Errorf("%w: empty string", ErrInvalidVersion)}
	}
	v, err := version.Parse(target)
	if err != nil {
		return version.Version{}, &InvalidVersionError{Role: "target", Value: target, Err: err}
	}
	return v, nil
}

func parseCurrent(current string) (*version.Version, error) {
	if current == "" {
		return nil, nil
	}
	v, err := version.Parse(current)
	if err != nil {
		return nil, &InvalidVersionError{Role: "current", Value: current, Err: err}
	}
	return &v, nil
}

func newCallSettings(opts []CallOption) (callSettings, error) {
	var call callSettings
	for _, opt := range opts {
		opt(&call)
	}
	if call.currentSet {
		if _, err := parseCurrent(call.current); err != nil {
			return callSettings{}, err
		}
	}
	return call, nil
}

// resolveCurrent returns the current version (nil if no version is applied) and its stored checksum.
func (m *Migrator[Tx]) resolveCurrent(ctx context.Context, call callSettings) (*version.Version, string, error) {
	if call.currentSet {
		current, err := parseCurrent(call.current)
		return current, call.checksum, err
	}
	var stored *StoredVersion
	if err := m.retry(ctx, "query version", func(ctx context.Context) error {
		var qErr error
		stored, qErr = m.adapter.QueryVersion(ctx)
		return qErr
	}); err != nil {
		return nil, "", fmt.Errorf("query current version: %w", err)
	}
	if stored == nil {
		return nil, "", nil
	}
	current, err := parseCurrent(stored.Version)
	if err != nil {
		return nil, "", err
	}
	return current, stored.Checksum, nil
}

type runState[Tx any] struct {
	m     *Migrator[Tx]
	state State
}

func (r *runState[Tx]) transition(to State) {
	from := r.state
	r.state = to
	r.m.logger.Debug("migration state changed", log.String("from", from.String()), log.String("to", to.String()))
	if r.m.observer != nil {
		r.m.observer(from, to)
	}
}

func (m *Migrator[Tx]) run(ctx context.Context, target version.Version, opts []CallOption) (res *Result, err error) {
	call, err := newCallSettings(opts)
	if err != nil {
		return nil, err
	}

	startedAt := m.now()
	r := &runState[Tx]{m: m, state: StateIdle}
	defer func() {
		status := "applied"
		switch {
		case err != nil:
			status = "failed"
		case res.Executed() == 0:
			status = "noop"
		}
		m.metrics.ObserveRun(status, m.now().Sub(startedAt))
	}()

	r.transition(StateLocking)
	if err = m.acquireLock(ctx); err != nil {
		r.transition(StateFailed)
		return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, err)
	}
	defer func() {
		r.transition(StateUnlocking)
		m.releaseLock(ctx)
		if err != nil {
			r.transition(StateFailed)
			m.logger.Error("migration failed", log.String("target", target.String()), log.Error(err))
			return
		}
		r.transition(StateDone)
	}()

	r.transition(StateResolvingVersion)
	current, storedChecksum, err := m.resolveCurrent(ctx, call)
	if err != nil {
		return nil, err
	}

	r.transition(StatePlanning)
	res = &Result{StartedAt: startedAt, Source: m.opts.Root(), ToVersion: target.String()}
	if current != nil {
		res.FromVersion = current.String()
	}

	if current != nil && current.Equal(target) {
		if err = m.verifyChecksum(target, storedChecksum); err != nil {
			return nil, err
		}
		r.transition(StateNoOp)
		return m.noOp(res, true, storedChecksum), nil
	}

	upgrade := current == nil || current.LessThan(target)
	plan, err := BuildPlan(m.opts, current, target, upgrade)
	if err != nil {
		return nil, fmt.Errorf("build migration plan: %w", err)
	}
	if plan.Empty() {
		r.transition(StateNoOp)
		return m.noOp(res, upgrade, storedChecksum), nil
	}

	res.Upgrade = upgrade
	if res.Checksum, err = m.persistedChecksum(plan, target); err != nil {
		return nil, err
	}

	r.transition(StateExecuting)
	m.logger.Info(fmt.Sprintf("Applying %d migration file(s) (%s)", len(plan.Entries()), res.Direction()),
		log.String("from", res.FromVersion), log.String("to", res.ToVersion))
	if err = m.adapter.Transaction(ctx, func(ctx context.Context, tx Tx) error {
		return m.execute(ctx, r, tx, plan, res)
	}); err != nil {
		return nil, err
	}

	m.metrics.AddExecutedEntries(res.Direction(), res.Executed())
	m.logger.Info(res.Message, log.Int("executed", res.Executed()))
	return res, nil
}

func (m *Migrator[Tx]) execute(ctx context.Context, r *runState[Tx], tx Tx, plan *Plan, res *Result) error {
	// The adapter may call fn again when it retries the whole transaction.
	res.Entries = res.Entries[:0]
	for _, entry := range plan.Entries() {
		content, err := m.readContent(entry)
		if err != nil {
			return &ExecutionError{Entry: entry.Name, Version: entry.Version.String(), Err: err}
		}
		if err = m.retry(ctx, "execute "+entry.Name, func(ctx context.Context) error {
			return m.adapter.Execute(ctx, tx, entry, content)
		}); err != nil {
			return &ExecutionError{Entry: entry.Name, Version: entry.Version.String(), Err: err}
		}
		res.Entries = append(res.Entries, entry)
		m.logger.Info(fmt.Sprintf("Executed migration: %s", entry.Name))
	}

	r.transition(StatePersisting)
	res.FinishedAt = m.now()
	res.Message = fmt.Sprintf("Migrated from version %s to version %s (%s), %d file(s) executed",
		displayVersion(res.FromVersion), displayVersion(res.ToVersion), res.Direction(), len(res.Entries))
	if err := m.adapter.SaveVersion(ctx, tx, res); err != nil {
		return fmt.Errorf("save version %s: %w", displayVersion(res.ToVersion), err)
	}
	return nil
}

func (m *Migrator[Tx]) noOp(res *Result, upgrade bool, storedChecksum string) *Result {
	res.Upgrade = upgrade
	res.ToVersion = res.FromVersion
	res.Checksum = storedChecksum
	res.FinishedAt = m.now()
	res.Message = fmt.Sprintf("Version %s is up to date, nothing to migrate", displayVersion(res.FromVersion))
	m.logger.Info(res.Message)
	return res
}

func displayVersion(v string) string {
	if v == "" {
		return "<none>"
	}
	return v
}

// verifyChecksum compares the stored checksum of the current version with the one computed from migration files.
func (m *Migrator[Tx]) verifyChecksum(target version.Version, stored string) error {
	if !m.opts.ChecksumEnabled() {
		return nil
	}
	computed, ok, err := m.historyChecksum(target)
	if err != nil || !ok {
		return err
	}
	if computed != stored {
		return &ChecksumMismatchError{Version: target.String(), Stored: stored, Computed: computed}
	}
	return nil
}

// historyChecksum returns the aggregate checksum of the last version group up to and including target.
// ok is false if there are no migration files up to target.
func (m *Migrator[Tx]) historyChecksum(target version.Version) (checksum string, ok bool, err error) {
	history, err := BuildPlan(m.opts, nil, target, true)
	if err != nil {
		return "", false, fmt.Errorf("build migration history: %w", err)
	}
	last, ok := history.Last()
	if !ok {
		return "", false, nil
	}
	return last.Checksum(), true, nil
}

// persistedChecksum returns the checksum that is saved together with the target version.
// For upgrade it is the checksum of the last executed group. For downgrade the target group is not executed,
// so the checksum is computed from the history, the same way verifyChecksum does on the next run.
func (m *Migrator[Tx]) persistedChecksum(plan *Plan, target version.Version) (string, error) {
	if !m.opts.ChecksumEnabled() {
		return "", nil
	}
	if plan.Upgrade {
		last, _ := plan.Last()
		return last.Checksum(), nil
	}
	if target.IsOrigin() {
		return "", nil
	}
	checksum, _, err := m.historyChecksum(target)
	return checksum, err
}

func (m *Migrator[Tx]) readContent(entry Entry) ([]byte, error) {
	content, err := afero.ReadFile(m.opts.Fs(), entry.Path)
	if err != nil {
		return nil, fmt.Errorf("read migration file: %w", err)
	}
	return m.opts.decode(content)
}

func (m *Migrator[Tx]) isRetryable() migratekit.IsRetryable {
	if classifier, ok := m.adapter.(RetryClassifier); ok {
		return classifier.IsRetryable
	}
	return nil
}

func (m *Migrator[Tx]) retry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	notify := func(err error, attempt int, delay time.Duration) {
		m.logger.Warn(fmt.Sprintf("Retrying %s in %s", operation, delay),
			log.Int("attempt", attempt), log.Error(err))
	}
	return migratekit.DoWithRetry(ctx, m.opts.RetryPolicy(), m.isRetryable(), notify, fn)
}

func (m *Migrator[Tx]) acquireLock(ctx context.Context) error {
	locker, ok := m.adapter.(Locker)
	if !ok {
		return nil
	}
	return m.retry(ctx, "acquire lock", locker.AcquireLock)
}

// releaseLock releases the lock even if ctx is already canceled. Errors are logged and not returned.
func (m *Migrator[Tx]) releaseLock(ctx context.Context) {
	locker, ok := m.adapter.(Locker)
	if !ok {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.lockReleaseTimeout)
	defer cancel()
	if err := m.retry(releaseCtx, "release lock", locker.ReleaseLock); err != nil {
		m.logger.Error("failed to release migration lock", log.String("lock_key", m.opts.LockKey()), log.Error(err))
	}
}
