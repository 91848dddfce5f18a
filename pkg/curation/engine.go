package curation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/backend/memory"
	"github.com/petroagent/memcurator-go/pkg/backend/mysql"
	"github.com/petroagent/memcurator-go/pkg/backend/postgres"
	"github.com/petroagent/memcurator-go/pkg/backend/sqlite"
	"github.com/petroagent/memcurator-go/pkg/budget"
	"github.com/petroagent/memcurator-go/pkg/embedder"
	"github.com/petroagent/memcurator-go/pkg/embedder/openai"
	"github.com/petroagent/memcurator-go/pkg/monitor"
	"github.com/petroagent/memcurator-go/pkg/namespace"
	"github.com/petroagent/memcurator-go/pkg/optimizer"
	"github.com/petroagent/memcurator-go/pkg/preference"
	"github.com/petroagent/memcurator-go/pkg/scoring"
	"github.com/petroagent/memcurator-go/pkg/selection"
)

const (
	defaultSearchTimeout = 5 * time.Second
	defaultSearchLimit   = 20

	// degradedConfidenceFactor discounts the result confidence when one
	// or more backend scopes failed.
	degradedConfidenceFactor = 0.7
)

// Engine is the memory curation engine. It owns the preference store,
// scorer, selector, optimizer, monitor and budget controller, and talks
// to the backend and embedder collaborators through narrow interfaces.
//
// Construct one Engine per process and share it across request handlers;
// all public methods are safe for concurrent use.
//
// Example:
//
//	config, _ := curation.LoadConfigFromEnv()
//	engine, err := curation.NewEngine(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	result, err := engine.Curate(ctx, "user_001", "reservoir_engineering",
//	    "waterflood optimization history")
type Engine struct {
	config   *Config
	backend  backend.MemoryBackend
	embedder embedder.Provider
	prefs    *preference.Store
	scorer   *scoring.Scorer
	selector *selection.Selector
	optim    *optimizer.Optimizer
	monitor  *monitor.Monitor
	budget   *budget.Controller
	node     *snowflake.Node

	searchTimeout time.Duration
	searchLimit   int

	mu     sync.RWMutex
	closed bool
}

// NewEngine creates an engine from configuration, constructing the
// backend and embedder it names.
//
// Parameters:
//   - cfg: Engine configuration
//
// Returns:
//   - *Engine: The engine instance
//   - error: Error if configuration is invalid or a provider fails to
//     initialize
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, NewCurationError("NewEngine", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	be, err := buildBackend(&cfg.Backend)
	if err != nil {
		return nil, err
	}
	emb, err := buildEmbedder(&cfg.Embedder)
	if err != nil {
		_ = be.Close()
		return nil, err
	}
	return NewEngineWithBackend(cfg, be, emb)
}

// NewEngineWithBackend creates an engine over an already constructed
// backend and embedder. The embedder may be nil. This is the
// dependency-injection entry point used by tests and by hosts that
// manage their own storage clients.
func NewEngineWithBackend(cfg *Config, be backend.MemoryBackend, emb embedder.Provider) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{Backend: BackendConfig{Provider: "memory"}}
	}
	if be == nil {
		return nil, NewCurationError("NewEngineWithBackend", ErrInvalidInput)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewCurationError("NewEngineWithBackend", err)
	}

	cc := cfg.Curation
	cacheTTL := time.Duration(cc.CacheTTLSeconds) * time.Second
	cooldown := time.Duration(cc.OptimizationCooldownMinutes) * time.Minute

	searchTimeout := time.Duration(cc.SearchTimeoutSeconds) * time.Second
	if searchTimeout <= 0 {
		searchTimeout = defaultSearchTimeout
	}
	searchLimit := cc.SearchLimit
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}

	mon, err := monitor.NewMonitor(cc.EventLogCapacity)
	if err != nil {
		return nil, NewCurationError("NewEngineWithBackend", err)
	}

	prefs := preference.NewStore()
	scorer := scoring.NewScorer(emb, cacheTTL, cc.CacheSize)

	return &Engine{
		config:        cfg,
		backend:       be,
		embedder:      emb,
		prefs:         prefs,
		scorer:        scorer,
		selector:      selection.NewSelector(scorer),
		optim:         optimizer.NewOptimizer(prefs, cooldown, cc.FeedbackLogCapacity),
		monitor:       mon,
		budget:        budget.NewController(cc.PreserveQuality),
		node:          node,
		searchTimeout: searchTimeout,
		searchLimit:   searchLimit,
	}, nil
}

// buildBackend constructs the configured memory backend.
func buildBackend(cfg *BackendConfig) (backend.MemoryBackend, error) {
	get := func(key, def string) string {
		if v, ok := cfg.Config[key].(string); ok && v != "" {
			return v
		}
		return def
	}
	getInt := func(key string, def int) int {
		switch v := cfg.Config[key].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
		return def
	}

	switch cfg.Provider {
	case "memory", "":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{
			DBPath:    get("db_path", "./memcurator.db"),
			TableName: get("table_name", "memories"),
		})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:      get("host", "localhost"),
			Port:      getInt("port", 5432),
			User:      get("user", "postgres"),
			Password:  get("password", ""),
			DBName:    get("db_name", "memcurator"),
			TableName: get("table_name", "memories"),
			SSLMode:   get("ssl_mode", "disable"),
		})
	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:      get("host", "localhost"),
			Port:      getInt("port", 3306),
			User:      get("user", "root"),
			Password:  get("password", ""),
			DBName:    get("db_name", "memcurator"),
			TableName: get("table_name", "memories"),
		})
	default:
		return nil, NewCurationError("buildBackend", fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider))
	}
}

// buildEmbedder constructs the configured embedding provider, or nil
// when none is configured.
func buildEmbedder(cfg *EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		return openai.NewClient(&openai.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, NewCurationError("buildEmbedder", fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider))
	}
}

// Remember stores a new memory in the role's resolved namespace.
//
// The namespace is inferred from the domain hint when given, otherwise
// from the content's keywords against the role's candidate domains.
//
// Parameters:
//   - ctx: Context for controlling request lifecycle
//   - userID: Owner user
//   - agentRole: Writing role name (unknown strings fall back to general)
//   - content: Memory content
//   - opts: Optional settings (type, domain, importance, metadata, shared)
//
// Returns the stored item's id, or an error.
func (e *Engine) Remember(ctx context.Context, userID, agentRole, content string, opts ...RememberOption) (int64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, NewCurationError("Remember", err)
	}
	if content == "" {
		return 0, NewCurationError("Remember", ErrInvalidInput)
	}

	options := &rememberOptions{
		memoryType: namespace.TypeSemantic,
		importance: 0.5,
	}
	for _, opt := range opts {
		opt(options)
	}

	role := namespace.ParseRole(agentRole)
	if options.shared {
		role = namespace.RoleShared
	}
	ns := namespace.ResolveNamespace(userID, role, options.memoryType, content, options.domainHint)

	item := &backend.MemoryItem{
		Content:    content,
		Type:       ns.Type,
		Namespace:  ns,
		CreatedAt:  time.Now(),
		Importance: clamp01(options.importance),
		Metadata:   options.metadata,
	}

	ctx, cancel := context.WithTimeout(ctx, e.searchTimeout)
	defer cancel()
	id, err := e.backend.Put(ctx, item)
	if err != nil {
		return 0, NewCurationError("Remember", err)
	}
	return id, nil
}

// Curate runs one full curation pass: resolve readable scopes, retrieve
// candidates per scope with a bounded timeout, score, filter, select and
// summarize.
//
// Backend failures never fail the request: the result degrades to the
// scopes that answered and its confidence is reduced accordingly.
func (e *Engine) Curate(ctx context.Context, userID, agentRole, query string, opts ...CurateOption) (*CuratedMemories, error) {
	req := &CurationRequest{
		UserID:    userID,
		AgentRole: agentRole,
		Query:     query,
	}
	for _, opt := range opts {
		opt(req)
	}
	return e.CurateRequest(ctx, req)
}

// CurateRequest is the request-object form of Curate, matching the host
// runtime contract.
func (e *Engine) CurateRequest(ctx context.Context, req *CurationRequest) (*CuratedMemories, error) {
	if err := e.checkOpen(); err != nil {
		return nil, NewCurationError("Curate", err)
	}
	if req == nil || req.Query == "" {
		return nil, NewCurationError("Curate", ErrInvalidInput)
	}

	role := namespace.ParseRole(req.AgentRole)
	pref := e.prefs.Get(role)

	scopes := namespace.AccessibleNamespaces(role, req.UserID, req.MemoryTypes...)
	candidates, degraded := e.searchScopes(ctx, scopes, req.Query)

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = scoring.StrategyAgentAdaptive
	}

	sctx := &scoring.Context{
		Query:               req.Query,
		AgentRole:           role,
		CurrentTask:         req.CurrentTask,
		DomainFocus:         namespace.Domain(req.DomainHint),
		ConversationHistory: req.ConversationHistory,
		AvailableTools:      req.AvailableTools,
		QualityRequirement:  req.QualityRequirement,
	}

	selected := e.selector.Select(ctx, candidates, sctx, &pref, strategyName)

	result := &CuratedMemories{
		Items:         selected.Items,
		Confidence:    selected.Confidence,
		Summary:       selected.Summary,
		PerTypeCounts: selected.Distribution,
		Domains:       selected.Domains,
		Degraded:      degraded,
	}
	if degraded {
		result.Confidence *= degradedConfidenceFactor
		result.Summary += " (partial: some memory scopes were unavailable)"
	}
	return result, nil
}

// searchScopes queries the backend once per readable scope, each under
// its own timeout. Failed scopes are skipped and reported as degraded.
func (e *Engine) searchScopes(ctx context.Context, scopes []namespace.Namespace, query string) ([]*backend.MemoryItem, bool) {
	var (
		candidates []*backend.MemoryItem
		seen       = make(map[int64]bool)
		degraded   bool
	)
	for _, ns := range scopes {
		scopeCtx, cancel := context.WithTimeout(ctx, e.searchTimeout)
		items, err := e.backend.Search(scopeCtx, ns.Prefix(), query, e.searchLimit)
		cancel()
		if err != nil {
			degraded = true
			continue
		}
		for _, item := range items {
			if !seen[item.ID] {
				seen[item.ID] = true
				candidates = append(candidates, item)
			}
		}
	}
	return candidates, degraded
}

// RecordUsage reports one memory access to the usage monitor and replays
// the advisory access counter into the backend. Returns the event id.
func (e *Engine) RecordUsage(ctx context.Context, sessionID, agentRole string, item *backend.MemoryItem, eventType, usageContext string, relevanceScore *float64, usageResult string) (int64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, NewCurationError("RecordUsage", err)
	}

	role := namespace.ParseRole(agentRole)
	eventID := e.monitor.RecordUsage(sessionID, role, item, eventType, usageContext, relevanceScore, usageResult)

	if item != nil {
		touchCtx, cancel := context.WithTimeout(ctx, e.searchTimeout)
		defer cancel()
		// Advisory only: a failed replay never fails the recording.
		_ = e.backend.Touch(touchCtx, item.Namespace, item.ID)
	}
	return eventID, nil
}

// RecordFeedback feeds one feedback event into the adaptive optimizer.
// The event id and timestamp are assigned if missing. When the trigger
// policy fires, the resulting optimization is returned; otherwise the
// result is nil.
func (e *Engine) RecordFeedback(event optimizer.FeedbackEvent) (*optimizer.OptimizationResult, error) {
	if err := e.checkOpen(); err != nil {
		return nil, NewCurationError("RecordFeedback", err)
	}
	if event.ID == 0 {
		event.ID = e.node.Generate().Int64()
	}
	event.AgentRole = namespace.ParseRole(string(event.AgentRole))

	result, err := e.optim.RecordFeedback(event)
	if err != nil {
		return nil, NewCurationError("RecordFeedback", err)
	}
	return result, nil
}

// Optimize explicitly runs parameter optimization for a role under the
// named adjustment strategy (conservative, balanced, aggressive,
// adaptive).
func (e *Engine) Optimize(agentRole, strategy string) (*optimizer.OptimizationResult, error) {
	if err := e.checkOpen(); err != nil {
		return nil, NewCurationError("Optimize", err)
	}
	result, err := e.optim.OptimizeParameters(namespace.ParseRole(agentRole), strategy)
	if err != nil {
		return nil, NewCurationError("Optimize", err)
	}
	return result, nil
}

// Rollback restores the preference snapshot taken before an applied
// optimization.
func (e *Engine) Rollback(optimizationID, reason string) error {
	if err := e.checkOpen(); err != nil {
		return NewCurationError("Rollback", err)
	}
	if err := e.optim.Rollback(optimizationID, reason); err != nil {
		return NewCurationError("Rollback", err)
	}
	return nil
}

// OptimizationHistory returns recorded optimization results for a role,
// or for all roles when the role is empty.
func (e *Engine) OptimizationHistory(agentRole string) ([]*optimizer.OptimizationResult, error) {
	if err := e.checkOpen(); err != nil {
		return nil, NewCurationError("OptimizationHistory", err)
	}
	if agentRole == "" {
		return e.optim.History(""), nil
	}
	return e.optim.History(namespace.ParseRole(agentRole)), nil
}

// Preference returns a point-in-time snapshot of a role's preferences.
func (e *Engine) Preference(agentRole string) (preference.Preference, error) {
	if err := e.checkOpen(); err != nil {
		return preference.Preference{}, NewCurationError("Preference", err)
	}
	return e.prefs.Get(namespace.ParseRole(agentRole)), nil
}

// UpdatePreference applies an operator preference update; all bounded
// fields are clamped before publication and the clamped value returned.
func (e *Engine) UpdatePreference(agentRole string, p preference.Preference) (preference.Preference, error) {
	if err := e.checkOpen(); err != nil {
		return preference.Preference{}, NewCurationError("UpdatePreference", err)
	}
	return e.prefs.Update(namespace.ParseRole(agentRole), p), nil
}

// PerformanceReport builds a window-scoped performance report across the
// given roles (all roles when none are named).
func (e *Engine) PerformanceReport(from, to time.Time, roles ...string) (*monitor.Report, error) {
	if err := e.checkOpen(); err != nil {
		return nil, NewCurationError("PerformanceReport", err)
	}
	parsed := make([]namespace.AgentRole, 0, len(roles))
	for _, r := range roles {
		parsed = append(parsed, namespace.ParseRole(r))
	}
	return e.monitor.PerformanceReport(from, to, parsed...), nil
}

// DetectAnomalies flags metrics outside their normal ranges for one role
// or, with an empty role, for every role with recorded usage.
func (e *Engine) DetectAnomalies(agentRole string, threshold float64) ([]monitor.Anomaly, error) {
	if err := e.checkOpen(); err != nil {
		return nil, NewCurationError("DetectAnomalies", err)
	}
	var role namespace.AgentRole
	if agentRole != "" {
		role = namespace.ParseRole(agentRole)
	}
	return e.monitor.DetectAnomalies(role, threshold), nil
}

// Metrics returns the current usage rollup for a role, or nil if the
// role has no recorded events.
func (e *Engine) Metrics(agentRole string) (*monitor.AgentMetrics, error) {
	if err := e.checkOpen(); err != nil {
		return nil, NewCurationError("Metrics", err)
	}
	return e.monitor.Metrics(namespace.ParseRole(agentRole)), nil
}

// RenderSections turns a curated result into budget sections: the top
// items become the critical core, the summary rides along, remaining
// items form supporting context, and distribution details are optional
// metadata.
func (e *Engine) RenderSections(curated *CuratedMemories) []budget.Section {
	if curated == nil || len(curated.Items) == 0 {
		return nil
	}

	core := curated.Items
	var supporting []*backend.MemoryItem
	if len(core) > 3 {
		supporting = core[3:]
		core = core[:3]
	}

	sections := []budget.Section{
		{
			Kind:       budget.KindCoreMemories,
			Content:    joinContents(core),
			Confidence: curated.Confidence,
		},
		{
			Kind:       budget.KindSummary,
			Content:    curated.Summary,
			Confidence: curated.Confidence,
		},
	}
	if len(supporting) > 0 {
		sections = append(sections, budget.Section{
			Kind:       budget.KindSupporting,
			Content:    joinContents(supporting),
			Confidence: curated.Confidence * 0.8,
		})
	}
	sections = append(sections, budget.Section{
		Kind:       budget.KindMetadata,
		Content:    fmt.Sprintf("domains: %v, distribution: %v", curated.Domains, curated.PerTypeCounts),
		Confidence: 0.3,
	})
	return sections
}

// FitBudget compresses rendered sections into a character budget.
func (e *Engine) FitBudget(sections []budget.Section, budgetChars int) ([]budget.Section, *budget.CompressionReport) {
	return e.budget.Fit(sections, budgetChars)
}

// Close shuts the engine down and releases the backend and embedder.
// Subsequent operations fail with ErrEngineClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	if err := e.backend.Close(); err != nil {
		firstErr = err
	}
	if e.embedder != nil {
		if err := e.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return NewCurationError("Close", firstErr)
}

func (e *Engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

func joinContents(items []*backend.MemoryItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, "- "+item.Content)
	}
	return strings.Join(parts, "\n")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
