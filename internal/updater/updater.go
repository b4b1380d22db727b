package updater

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/company-updater/internal/merge"
	"github.com/jonathan/company-updater/internal/research"
	"github.com/jonathan/company-updater/internal/store"
	"github.com/jonathan/company-updater/internal/types"
)

// DefaultBatchDelay is the minimum pause between companies in a batch.
const DefaultBatchDelay = time.Second

// Config holds updater tuning and injectable dependencies.
type Config struct {
	// BatchDelay separates successive companies in RunAll. Values below
	// DefaultBatchDelay are raised to it.
	BatchDelay time.Duration
	// CompanyTimeout bounds one company's run; zero disables it.
	CompanyTimeout time.Duration
	Merge          merge.Options
	Now            func() time.Time
	Sleep          research.SleepFunc
	Logger         *zap.Logger
}

// DefaultConfig returns the production updater configuration.
func DefaultConfig() Config {
	return Config{
		BatchDelay: DefaultBatchDelay,
		Merge:      merge.DefaultOptions(),
		Now:        time.Now,
		Sleep:      research.SleepContext,
	}
}

// Failure records one company that could not be updated in a batch.
type Failure struct {
	Slug string
	Err  error
}

// BatchResult summarizes a RunAll call.
type BatchResult struct {
	RunID    uuid.UUID
	Selected int
	Updated  []types.Company
	Failed   []Failure
}

// Updater runs research updates against the record and policy stores.
type Updater struct {
	records  *store.Records
	policies *store.Policies
	selector research.Selector
	cfg      Config
	logger   *zap.Logger
	group    singleflight.Group
	// slugs serializes load, research, save and stamp per company.
	slugs slugLocks
	// batch admits one RunAll at a time.
	batch chan struct{}
}

// New creates an Updater, filling unset config fields with defaults.
func New(records *store.Records, policies *store.Policies, selector research.Selector, cfg Config) *Updater {
	if cfg.BatchDelay < DefaultBatchDelay {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = research.SleepContext
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{
		records:  records,
		policies: policies,
		selector: selector,
		cfg:      cfg,
		logger:   logger,
		batch:    make(chan struct{}, 1),
	}
}

// Due returns the policies RunAll would process now. Invalid entries are
// logged and skipped so they cannot block the rest of the document.
func (u *Updater) Due(force bool) ([]types.UpdatePolicy, error) {
	doc, err := u.policies.Load()
	if err != nil {
		return nil, err
	}
	usable, problems := doc.Usable()
	for _, p := range problems {
		u.logger.Warn("skipping invalid policy entry", zap.Error(p))
	}
	if !force {
		for _, p := range usable {
			if raw, bad := p.LastUpdated.Malformed(); bad {
				u.logger.Warn("unparseable lastUpdated, not due until a forced run",
					zap.String("slug", p.Slug), zap.String("lastUpdated", raw))
			}
		}
	}
	return SelectDue(withDefaultFrequency(usable, doc.DefaultUpdateFrequency), u.cfg.Now(), force), nil
}

// UpdateOne runs RunOne for slug, sharing the result with concurrent
// callers asking for the same slug.
func (u *Updater) UpdateOne(ctx context.Context, slug string) (*types.Company, error) {
	v, err, shared := u.group.Do(slug, func() (any, error) {
		return u.RunOne(ctx, slug)
	})
	if shared {
		u.logger.Debug("joined in-flight update", zap.String("slug", slug))
	}
	if err != nil {
		return nil, err
	}
	return v.(*types.Company).Clone(), nil
}

// RunOne researches one company, merges the result into its record and
// stamps its policy. A missing record is bootstrapped. The policy is only
// stamped after the record has been written. Runs for the same slug never
// overlap, so each one merges into the record the previous one saved.
func (u *Updater) RunOne(ctx context.Context, slug string) (*types.Company, error) {
	unlock := u.slugs.lock(slug)
	defer unlock()

	if u.cfg.CompanyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.CompanyTimeout)
		defer cancel()
	}

	doc, err := u.policies.Load()
	if err != nil {
		return nil, &UpdateError{Slug: slug, Stage: "load policies", Cause: err}
	}
	policy, ok := doc.Find(slug)
	if !ok {
		return nil, &ConfigError{Slug: slug, Message: "company is not listed in the update configuration"}
	}
	if err := policy.Validate(); err != nil {
		return nil, &ConfigError{Slug: slug, Message: err.Error()}
	}

	existing, isNew, err := u.loadOrBootstrap(policy)
	if err != nil {
		return nil, &UpdateError{Slug: slug, Stage: "load record", Cause: err}
	}

	researcher, err := u.selector.For(policy.UseRAG)
	if err != nil {
		return nil, &UpdateError{Slug: slug, Stage: "select strategy", Cause: err}
	}

	log := u.logger.With(zap.String("slug", slug), zap.Bool("new", isNew), zap.Bool("rag", policy.UseRAG))
	log.Info("researching company")

	result, err := researcher.Research(ctx, research.Request{
		CompanyName:    policy.Name,
		PromptTemplate: doc.DeepResearchPromptTemplate,
		Existing:       *existing,
		IsNew:          isNew,
	})
	if err != nil {
		return nil, &UpdateError{Slug: slug, Stage: "research", Cause: err}
	}

	merged := merge.Merge(*existing, result.Company, u.cfg.Merge)

	if err := u.records.Save(&merged); err != nil {
		return nil, &UpdateError{Slug: slug, Stage: "save record", Cause: err}
	}
	if err := u.policies.MarkUpdated(slug, u.cfg.Now()); err != nil {
		return nil, &UpdateError{Slug: slug, Stage: "stamp policy", Cause: err}
	}

	log.Info("company updated",
		zap.Int("notableWorks", len(merged.NotableWorks)),
		zap.Int("history", len(merged.History)))
	return &merged, nil
}

func (u *Updater) loadOrBootstrap(policy *types.UpdatePolicy) (*types.Company, bool, error) {
	existing, err := u.records.Load(policy.Slug)
	if errors.Is(err, store.ErrNotFound) {
		return types.NewCompany(policy.Slug, policy.Name), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// RunAll updates every due company in order. Individual failures are
// logged and collected; the batch continues with the next company. Only a
// policy load failure or context cancellation ends the batch early.
// Concurrent calls run one after another; the due set is computed once the
// batch starts, so a queued batch skips what the previous one refreshed.
func (u *Updater) RunAll(ctx context.Context, force bool) (*BatchResult, error) {
	select {
	case u.batch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-u.batch }()

	runID := uuid.New()
	log := u.logger.With(zap.String("run_id", runID.String()))

	due, err := u.Due(force)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{RunID: runID, Selected: len(due), Updated: []types.Company{}}
	log.Info("starting batch", zap.Int("due", len(due)), zap.Bool("force", force))

	for i, policy := range due {
		if i > 0 {
			if err := u.cfg.Sleep(ctx, u.cfg.BatchDelay); err != nil {
				return result, err
			}
		}

		company, err := u.RunOne(ctx, policy.Slug)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Failed = append(result.Failed, Failure{Slug: policy.Slug, Err: err})
				return result, ctxErr
			}
			log.Error("company update failed", zap.String("slug", policy.Slug), zap.Error(err))
			result.Failed = append(result.Failed, Failure{Slug: policy.Slug, Err: err})
			continue
		}
		result.Updated = append(result.Updated, *company)
	}

	log.Info("batch finished",
		zap.Int("updated", len(result.Updated)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}
