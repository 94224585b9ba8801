package mutation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/internal/ratelimiter"
	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/enumerate"
	"github.com/marmos91/dittostore/pkg/index"
	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// DefaultBatchSize is the number of source keys handled per Execute call.
const DefaultBatchSize = 500

// Failure stages reported in KeyFailure.
const (
	StageCopy     = "copy"
	StageDelete   = "delete"
	StageVersions = "versions"
)

// KeyFailure is a source key that could not be fully processed.
type KeyFailure struct {
	Key   string `json:"key" yaml:"key"`
	Stage string `json:"stage" yaml:"stage"`
	Err   error  `json:"-" yaml:"-"`
}

// Result reports what one or more executed batches did.
type Result struct {
	OperationID string `json:"operationId" yaml:"operationId"`

	Copied   int          `json:"copied" yaml:"copied"`
	Deleted  int          `json:"deleted" yaml:"deleted"`
	Versions int          `json:"versions,omitempty" yaml:"versions,omitempty"`
	Failed   []KeyFailure `json:"failed,omitempty" yaml:"failed,omitempty"`

	// ContinuationToken resumes the plan; empty once the source is
	// exhausted
	ContinuationToken string `json:"continuationToken,omitempty" yaml:"continuationToken,omitempty"`
}

// Done reports whether the whole source has been processed.
func (r *Result) Done() bool {
	return r.ContinuationToken == ""
}

// ExecutorConfig configures plan execution.
type ExecutorConfig struct {
	// BatchSize is the number of source keys per Execute call
	BatchSize int

	// CallsPerSecond caps object store calls (0 = unlimited)
	CallsPerSecond uint

	// Burst is the rate limiter bucket size (0 = CallsPerSecond)
	Burst uint
}

// VersionMover re-homes the version snapshots of a moved tree.
// *version.Manager implements it.
type VersionMover interface {
	Move(ctx context.Context, from, to string) (int, error)
}

// Executor runs validated plans against the object store.
//
// The object store has no rename primitive, so move and rename are a copy of
// every source key followed by a delete of the copied sources. Each key is an
// independent operation: a crash mid-plan can leave both copies present, and
// re-running the plan is safe.
type Executor struct {
	store     object.Store
	index     index.PathIndex
	limiter   *ratelimiter.Limiter
	batchSize int
	metrics   Metrics
	versions  VersionMover
}

// NewExecutor creates an Executor. idx and metrics may be nil.
func NewExecutor(store object.Store, idx index.PathIndex, cfg ExecutorConfig, metrics Metrics) *Executor {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Executor{
		store:     store,
		index:     idx,
		limiter:   ratelimiter.New(cfg.CallsPerSecond, cfg.Burst),
		batchSize: batchSize,
		metrics:   metrics,
	}
}

// WithVersions makes move and rename carry the version history of the moved
// keys along. Without it, snapshots stay under the old keys.
func (e *Executor) WithVersions(v VersionMover) *Executor {
	e.versions = v
	return e
}

// Execute processes one batch of plan, starting after plan.ContinuationToken.
//
// Ordering per batch:
//  1. Copy every listed source key to its mapped destination
//  2. For move/rename, delete the sources whose copy succeeded
//  3. For move/rename, once the source is exhausted, move its versions
//
// A failed copy keeps its source; a failed delete leaves both copies. Both
// are reported in Result.Failed and do not abort the batch.
//
// Parameters:
//   - ctx: Context for cancellation
//   - plan: A plan produced by Validator.Validate
//
// Returns:
//   - *Result: Counters, failures and the token for the next batch
//   - error: ErrNotFound when the source doesn't exist, ErrIllegalMove for a
//     cyclic plan, or listing/context errors
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	start := time.Now()
	res, err := e.execute(ctx, plan, uuid.NewString())

	outcome := outcomeOf(err)
	if err == nil && len(res.Failed) > 0 {
		outcome = "partial"
	}
	if plan != nil {
		e.metrics.ObservePlan(plan.Op, outcome, time.Since(start))
	}
	return res, err
}

// ExecuteAll runs Execute until the source is exhausted, aggregating the
// results under one operation ID.
func (e *Executor) ExecuteAll(ctx context.Context, plan *Plan) (*Result, error) {
	if plan == nil {
		return nil, newError(ErrInvalidRequest, "nil plan")
	}

	start := time.Now()
	total, err := e.executeAll(ctx, plan)

	outcome := outcomeOf(err)
	if err == nil && len(total.Failed) > 0 {
		outcome = "partial"
	}
	e.metrics.ObservePlan(plan.Op, outcome, time.Since(start))
	return total, err
}

func (e *Executor) executeAll(ctx context.Context, plan *Plan) (*Result, error) {
	opID := uuid.NewString()
	total := &Result{OperationID: opID}
	next := *plan

	for {
		res, err := e.execute(ctx, &next, opID)
		if res != nil {
			total.Copied += res.Copied
			total.Deleted += res.Deleted
			total.Versions += res.Versions
			total.Failed = append(total.Failed, res.Failed...)
		}
		if err != nil {
			total.ContinuationToken = next.ContinuationToken
			return total, err
		}

		if res.Done() {
			return total, nil
		}
		next.ContinuationToken = res.ContinuationToken
	}
}

func (e *Executor) execute(ctx context.Context, plan *Plan, opID string) (*Result, error) {
	// ========================================================================
	// Step 1: Re-check plan invariants
	// ========================================================================

	if plan == nil {
		return nil, newError(ErrInvalidRequest, "nil plan")
	}
	if IsCycle(plan.Source, plan.Destination) {
		return nil, newError(ErrIllegalMove, "cannot %s %s into itself (%s)", plan.Op, plan.Source, plan.Destination)
	}

	src := plan.Source.Path()
	dst := plan.Destination.Path()

	if plan.ContinuationToken == "" {
		found, err := index.StoreExists(ctx, e.store, src)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, newError(ErrNotFound, "source %s does not exist", plan.Source)
		}
	}

	// ========================================================================
	// Step 2: List the next batch of source keys
	// ========================================================================

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	page, err := enumerate.ListPage(ctx, e.store, src, plan.ContinuationToken, e.batchSize)
	if err != nil {
		return nil, err
	}

	res := &Result{OperationID: opID, ContinuationToken: page.NextToken}
	logger.Debug("op=%s %s %s -> %s: batch of %d keys", opID, plan.Op, src, dst, len(page.Objects))

	// ========================================================================
	// Step 3: Copy
	// ========================================================================

	copied := make([]string, 0, len(page.Objects))
	toDelete := make([]string, 0, len(page.Objects))

	for _, obj := range page.Objects {
		target, ok := keys.Rebase(obj.Key, src, dst)
		if !ok {
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return res, err
		}
		if err := object.Copy(ctx, e.store, obj.Key, target); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warn("op=%s copy %s -> %s failed: %v", opID, obj.Key, target, err)
			res.Failed = append(res.Failed, KeyFailure{Key: obj.Key, Stage: StageCopy, Err: err})
			continue
		}

		res.Copied++
		copied = append(copied, target)
		if plan.Op.Removes() {
			toDelete = append(toDelete, obj.Key)
		}
	}

	e.indexAdd(ctx, opID, copied)

	// ========================================================================
	// Step 4: Delete copied sources (move/rename)
	// ========================================================================

	if len(toDelete) > 0 {
		if err := e.limiter.WaitN(ctx, len(toDelete)); err != nil {
			return res, err
		}

		failures, err := object.DeleteMany(ctx, e.store, toDelete)
		removed := make([]string, 0, len(toDelete))
		for _, key := range toDelete {
			if ferr, failed := failures[key]; failed {
				logger.Warn("op=%s delete %s failed: %v", opID, key, ferr)
				res.Failed = append(res.Failed, KeyFailure{Key: key, Stage: StageDelete, Err: ferr})
				continue
			}
			removed = append(removed, key)
		}
		res.Deleted = len(removed)
		e.indexRemove(ctx, opID, removed)

		if err != nil {
			return res, err
		}
	}

	// ========================================================================
	// Step 5: Move the version history once the source is exhausted
	// ========================================================================

	if plan.Op.Removes() && res.Done() && e.versions != nil {
		n, err := e.versions.Move(ctx, src, dst)
		res.Versions = n
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warn("op=%s moving versions %s -> %s failed: %v", opID, src, dst, err)
			res.Failed = append(res.Failed, KeyFailure{Key: src, Stage: StageVersions, Err: err})
		}
	}

	e.metrics.RecordKeys(plan.Op, "copied", res.Copied)
	e.metrics.RecordKeys(plan.Op, "deleted", res.Deleted)
	e.metrics.RecordKeys(plan.Op, "failed", len(res.Failed))

	logger.Info("op=%s %s %s -> %s: copied=%d deleted=%d versions=%d failed=%d more=%t",
		opID, plan.Op, src, dst, res.Copied, res.Deleted, res.Versions, len(res.Failed), !res.Done())

	return res, nil
}

func (e *Executor) indexAdd(ctx context.Context, opID string, paths []string) {
	if e.index == nil || len(paths) == 0 {
		return
	}
	if err := e.index.Add(ctx, paths...); err != nil {
		logger.Debug("op=%s path index add failed: %v", opID, err)
	}
}

func (e *Executor) indexRemove(ctx context.Context, opID string, paths []string) {
	if e.index == nil || len(paths) == 0 {
		return
	}
	if err := e.index.Remove(ctx, paths...); err != nil {
		logger.Debug("op=%s path index remove failed: %v", opID, err)
	}
}

// permission is one ACL question asked by Authorize.
type permission struct {
	loc    Location
	action acl.Action
}

// Authorize checks plan against checker for user: read on the source, write
// on the destination and, when the source is removed, write on the source.
//
// Returns:
//   - error: ErrForbidden naming the refused path, or nil
func Authorize(checker acl.Checker, user string, plan *Plan) error {
	if checker == nil || plan == nil {
		return nil
	}

	checks := []permission{
		{plan.Source, acl.ActionRead},
		{plan.Destination, acl.ActionWrite},
	}
	if plan.Op.Removes() {
		checks = append(checks, permission{plan.Source, acl.ActionWrite})
	}

	for _, c := range checks {
		if !checker.HasPermission(user, c.loc.String(), c.action) {
			return newError(ErrForbidden, "%s may not %s %s", user, c.action, c.loc)
		}
	}
	return nil
}
