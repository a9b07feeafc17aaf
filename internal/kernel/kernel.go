package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/presstab/jrdev/internal/codeagent"
	"github.com/presstab/jrdev/internal/fileops"
	"github.com/presstab/jrdev/internal/models"
	"github.com/presstab/jrdev/internal/profiles"
	"github.com/presstab/jrdev/internal/projectctx"
	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/research"
	"github.com/presstab/jrdev/internal/router"
	"github.com/presstab/jrdev/internal/taskmonitor"
	"github.com/presstab/jrdev/internal/threadstore"
	"github.com/presstab/jrdev/internal/usage"
)

// Kernel owns every long-lived collaborator and is the single
// dispatch point the CLI (one-shot) and REPL (interactive) entrypoints
// call into, matching the teacher's bootstrapStandaloneAgent-then-loop
// split in cmd/agent_chat_standalone.go.
type Kernel struct {
	Root      string
	HomeDir   string
	AcceptAll bool

	ModelList     *models.List
	Registry      *providers.Registry
	Profiles      *profiles.Manager
	Index         *projectctx.Index
	Store         *threadstore.Store
	Library       *prompts.Library
	Tracker       *usage.Tracker
	Monitor       *taskmonitor.Monitor
	Router        *router.Router
	Confirmer     fileops.Confirmer
	PlanConfirmer codeagent.PlanConfirmer

	git         gitConfig
	nextWorkerN int

	asyncJobs cancelToken
	// projectContextOn gates whether /code requests include the project
	// overview/conventions/tree files (§4.9/§6 /projectcontext on|off).
	projectContextOn bool
}

// New wires every C4-C15 collaborator for the project rooted at root.
func New(root string, acceptAll bool) (*Kernel, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("kernel: resolve root: %w", err)
	}

	homeDir, err := jrdevHomeDir()
	if err != nil {
		return nil, err
	}

	// Startup secret loading: ~/.jrdev/.env, if present (§6).
	_ = godotenv.Load(filepath.Join(homeDir, ".env"))

	registry, err := providers.NewRegistry(providers.DefaultProviderSpecs())
	if err != nil {
		return nil, fmt.Errorf("kernel: provider config missing: %w", err)
	}

	userModels, err := loadUserModelConfig(homeDir)
	if err != nil {
		return nil, err
	}
	modelList := models.NewList(userModels.Models, userModels.Ignored, models.DefaultModels())

	savedProfiles, err := loadModelProfiles(homeDir)
	if err != nil {
		return nil, err
	}
	var savedMap map[string]string
	if savedProfiles != nil {
		savedMap = savedProfiles.Profiles
		if savedProfiles.ChatModel != "" {
			if savedMap == nil {
				savedMap = make(map[string]string)
			}
			savedMap["chat_model"] = savedProfiles.ChatModel
		}
	}
	profileManager := profiles.LoadOrSelect(savedMap, registry, modelList)

	projectDir := filepath.Join(root, ".jrdev")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, fmt.Errorf("kernel: create %s: %w", projectDir, err)
	}
	if err := ensureGitignoreEntry(root); err != nil {
		return nil, err
	}

	index, err := projectctx.NewIndex(root)
	if err != nil {
		return nil, fmt.Errorf("kernel: init project index: %w", err)
	}

	store, err := threadstore.NewStore(filepath.Join(projectDir, "threads"))
	if err != nil {
		return nil, fmt.Errorf("kernel: init thread store: %w", err)
	}

	promptsDir := filepath.Join(homeDir, "prompts")
	if _, err := prompts.SeedDefaults(promptsDir); err != nil {
		return nil, fmt.Errorf("kernel: seed prompts: %w", err)
	}
	library, err := prompts.NewLibrary(promptsDir)
	if err != nil {
		return nil, fmt.Errorf("kernel: load prompts: %w", err)
	}

	tracker := usage.NewTracker()
	monitor := taskmonitor.New()

	r, err := router.New(store, library, profileManager.ChatModel(), tracker)
	if err != nil {
		return nil, fmt.Errorf("kernel: init router: %w", err)
	}

	k := &Kernel{
		Root:          root,
		HomeDir:       homeDir,
		AcceptAll:     acceptAll,
		ModelList:     modelList,
		Registry:      registry,
		Profiles:      profileManager,
		Index:         index,
		Store:         store,
		Library:       library,
		Tracker:       tracker,
		Monitor:       monitor,
		Router:        r,
		Confirmer:     &TerminalConfirmer{AcceptAll: acceptAll},
		PlanConfirmer: &TerminalPlanConfirmer{AcceptAll: acceptAll},
		git:           loadGitConfig(root),

		projectContextOn: true,
	}
	return k, nil
}

// ensureGitignoreEntry appends ".jrdev/" to the project's .gitignore
// if it isn't already covered, so thread/context state never gets
// committed (§6 file layout note).
func ensureGitignoreEntry(root string) error {
	path := filepath.Join(root, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("kernel: read .gitignore: %w", err)
	}
	content := string(data)
	if containsLine(content, ".jrdev/") || containsLine(content, ".jrdev") {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("kernel: open .gitignore: %w", err)
	}
	defer f.Close()
	if len(content) > 0 && content[len(content)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(".jrdev/\n")
	return err
}

func containsLine(content, line string) bool {
	for _, l := range splitLines(content) {
		if l == line {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, trimCR(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

// summarizerAdapter resolves a model name to its provider and wraps it so
// projectctx.RunInit (which only needs one-shot completions, not raw
// chunk streaming) can drive it through the Summarizer interface.
type summarizerAdapter struct {
	k     *Kernel
	model string
}

func (a summarizerAdapter) Complete(ctx context.Context, systemPrompt string, userMessages []providers.Message) (string, error) {
	streamer, resolvedModel, ok := a.k.Registry.ResolveModel(a.model)
	if !ok {
		return "", fmt.Errorf("kernel: no active provider serves model %q", a.model)
	}
	msgs := append([]providers.Message{{Role: providers.RoleSystem, Content: systemPrompt}}, userMessages...)
	req := providers.ChatRequest{Model: resolvedModel, Messages: msgs}

	var text string
	usg, err := streamer.Stream(ctx, req, func(c providers.StreamChunk) {
		text += c.Content
	}, nil, providers.StreamOpts{TaskID: "init"})
	if err != nil {
		return "", err
	}
	if usg != nil {
		a.k.Tracker.AddUse(a.model, usg.InputTokens, usg.OutputTokens)
	}
	return text, nil
}

// RunInit executes the /init workflow (§4.9).
func (k *Kernel) RunInit(ctx context.Context) error {
	model, _ := k.Profiles.ModelFor("advanced")
	if model == "" {
		model = k.Profiles.ChatModel()
	}
	return projectctx.RunInit(ctx, k.Index, k.Root, summarizerAdapter{k: k, model: model})
}

// nextTaskID hands out a fresh worker id, scoped to this process.
func (k *Kernel) nextTaskID(prefix string) string {
	k.nextWorkerN++
	return fmt.Sprintf("%s-%d", prefix, k.nextWorkerN)
}

// researchDeps builds a research.Deps for one /research invocation.
func (k *Kernel) researchDeps(streamer providers.Streamer, model, workerID string) research.Deps {
	return research.Deps{
		Store:       k.Store,
		Library:     k.Library,
		Streamer:    streamer,
		Model:       model,
		Tracker:     k.Tracker,
		BraveAPIKey: os.Getenv("BRAVE_API_KEY"),
		WorkerID:    workerID,
	}
}
