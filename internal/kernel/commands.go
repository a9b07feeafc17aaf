package kernel

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/presstab/jrdev/internal/codeagent"
	"github.com/presstab/jrdev/internal/fileops"
	"github.com/presstab/jrdev/internal/models"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/research"
	"github.com/presstab/jrdev/internal/router"
	"github.com/presstab/jrdev/internal/threadstore"
	"github.com/presstab/jrdev/internal/usage"
)

// commandCatalog is the static command-registry table (§4.11): every
// slash command the router is told about and dispatched by name.
var commandCatalog = []router.CommandInfo{
	{Name: "/addcontext", Doc: "Stage a file or glob of files as context for the next message."},
	{Name: "/viewcontext", Doc: "Show staged/embedded context files and recent history."},
	{Name: "/clearcontext", Doc: "Clear staged and embedded context files."},
	{Name: "/clearmessages", Doc: "Clear the active thread's message history."},
	{Name: "/code", Doc: "Make code changes to the project to accomplish a task."},
	{Name: "/cost", Doc: "Show accumulated token usage and cost by model."},
	{Name: "/exit", Doc: "Exit the program."},
	{Name: "/help", Doc: "List available commands."},
	{Name: "/init", Doc: "Build the project context index (tree, overview, conventions)."},
	{Name: "/model", Doc: "Manage model profiles: list, set, remove, add."},
	{Name: "/models", Doc: "List the model catalogue and current profile assignments."},
	{Name: "/projectcontext", Doc: "Toggle or inspect project context: on, off, status, list, view, refresh."},
	{Name: "/stateinfo", Doc: "Show kernel and project state."},
	{Name: "/tasks", Doc: "List in-flight and recent tasks."},
	{Name: "/cancel", Doc: "Cancel a running task by id, or all."},
	{Name: "/asyncsend", Doc: "Send a task to run in the background."},
	{Name: "/thread", Doc: "Manage conversation threads: new, list, switch, rename, info, view."},
	{Name: "/git", Doc: "Git helpers: pr summary, pr review, config get/set/list."},
	{Name: "/login", Doc: "Store an API key for a provider in ~/.jrdev/.env."},
	{Name: "/research", Doc: "Research a topic using web search and page scraping."},
}

// cancelToken lets /cancel stop an in-flight /asyncsend or /research
// job by task id.
type cancelToken struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func (c *cancelToken) register(id string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancels == nil {
		c.cancels = make(map[string]context.CancelFunc)
	}
	c.cancels[id] = cancel
}

func (c *cancelToken) cancelOne(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cancel, ok := c.cancels[id]
	if ok {
		cancel()
		delete(c.cancels, id)
	}
	return ok
}

func (c *cancelToken) cancelAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.cancels)
	for id, cancel := range c.cancels {
		cancel()
		delete(c.cancels, id)
	}
	return n
}

// Dispatch is the single entrypoint both the one-shot CLI and the
// interactive REPL call into: route a line of input to either a known
// slash command or, for free text, the router agent (§4.11), matching
// the teacher's chatFn indirection in cmd/agent_chat_standalone.go.
func (k *Kernel) Dispatch(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	if strings.HasPrefix(line, "/") {
		name, args := splitCommand(line)
		return k.runCommand(ctx, name, args)
	}

	return k.chat(ctx, line)
}

func splitCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	return fields[0], fields[1:]
}

// chat routes free-form text through the router agent (§4.11): it
// either dispatches a recognized command, asks a clarifying question,
// or returns the router's own drafted reply.
func (k *Kernel) chat(ctx context.Context, text string) (string, error) {
	streamer, _, ok := k.Registry.ResolveModel(k.Profiles.ChatModel())
	if !ok {
		return "", fmt.Errorf("kernel: no active provider serves the chat model")
	}
	taskID := k.nextTaskID("chat")

	decision, err := k.Router.Interpret(ctx, streamer, text, commandCatalog, taskID)
	if err != nil {
		return "", fmt.Errorf("kernel: route message: %w", err)
	}

	switch decision.Kind {
	case router.DecisionExecuteCommand:
		cmdLine := decision.CommandName
		if len(decision.CommandArgs) > 0 {
			cmdLine += " " + strings.Join(decision.CommandArgs, " ")
		}
		return k.Dispatch(ctx, cmdLine)
	case router.DecisionClarify:
		return decision.Question, nil
	case router.DecisionChat:
		thread, err := k.Store.GetCurrentThread()
		if err == nil {
			thread.AppendMessage(providers.Message{Role: providers.RoleUser, Content: text})
			thread.AppendMessage(providers.Message{Role: providers.RoleAssistant, Content: decision.Response})
			_ = k.Store.Save(thread)
		}
		return decision.Response, nil
	default:
		return "", fmt.Errorf("kernel: unhandled router decision %q", decision.Kind)
	}
}

func (k *Kernel) runCommand(ctx context.Context, name string, args []string) (string, error) {
	switch name {
	case "/addcontext":
		return k.cmdAddContext(args)
	case "/viewcontext":
		return k.cmdViewContext(args)
	case "/clearcontext":
		return k.cmdClearContext()
	case "/clearmessages":
		return k.cmdClearMessages()
	case "/code":
		return k.cmdCode(ctx, strings.Join(args, " "))
	case "/cost":
		return k.cmdCost(), nil
	case "/exit":
		return "", ErrExit
	case "/help":
		return k.cmdHelp(), nil
	case "/init":
		return k.cmdInit(ctx)
	case "/model":
		return k.cmdModel(args)
	case "/models":
		return k.cmdModels(), nil
	case "/projectcontext":
		return k.cmdProjectContext(args)
	case "/stateinfo":
		return k.cmdStateInfo(), nil
	case "/tasks":
		return k.cmdTasks(), nil
	case "/cancel":
		return k.cmdCancel(args), nil
	case "/asyncsend":
		return k.cmdAsyncSend(ctx, args), nil
	case "/thread":
		return k.cmdThread(args)
	case "/git":
		return k.cmdGit(ctx, args)
	case "/login":
		return k.cmdLogin(args)
	case "/research":
		return k.cmdResearch(ctx, strings.Join(args, " "))
	default:
		return "", fmt.Errorf("unknown command %q (try /help)", name)
	}
}

// ErrExit is returned by Dispatch for /exit; the REPL loop checks for
// it to break cleanly rather than treating it as a failure.
var ErrExit = fmt.Errorf("kernel: exit requested")

func (k *Kernel) cmdAddContext(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /addcontext <glob|path>")
	}
	thread, err := k.Store.GetCurrentThread()
	if err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(k.Root, args[0]))
	if err != nil {
		return "", fmt.Errorf("invalid glob: %w", err)
	}
	if len(matches) == 0 {
		if resolved, ok := fileops.ResolveFile(k.Root, args[0]); ok {
			matches = []string{resolved}
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files matched %q", args[0])
	}
	for _, m := range matches {
		if err := thread.StageFile(m); err != nil {
			return "", err
		}
	}
	if err := k.Store.Save(thread); err != nil {
		return "", err
	}
	return fmt.Sprintf("staged %d file(s)", len(matches)), nil
}

func (k *Kernel) cmdViewContext(args []string) (string, error) {
	thread, err := k.Store.GetCurrentThread()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "staged: %v\n", thread.StagedPaths())
	fmt.Fprintf(&sb, "embedded: %v\n", thread.EmbeddedPaths())

	n := 5
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil {
			n = parsed
		}
	}
	history := thread.History()
	if n > len(history) {
		n = len(history)
	}
	for _, m := range history[len(history)-n:] {
		fmt.Fprintf(&sb, "[%s] %s\n", m.Role, truncateDisplay(m.Content, 200))
	}
	return sb.String(), nil
}

func truncateDisplay(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func (k *Kernel) cmdClearContext() (string, error) {
	thread, err := k.Store.GetCurrentThread()
	if err != nil {
		return "", err
	}
	thread.ClearContext()
	return "context cleared", k.Store.Save(thread)
}

func (k *Kernel) cmdClearMessages() (string, error) {
	thread, err := k.Store.GetCurrentThread()
	if err != nil {
		return "", err
	}
	thread.ClearMessages()
	return "messages cleared", k.Store.Save(thread)
}

func (k *Kernel) cmdCode(ctx context.Context, task string) (string, error) {
	if task == "" {
		return "", fmt.Errorf("usage: /code <task>")
	}
	thread, err := k.Store.GetCurrentThread()
	if err != nil {
		return "", err
	}
	model, _ := k.Profiles.ModelFor("advanced")
	if model == "" {
		model = k.Profiles.ChatModel()
	}
	streamer, resolvedModel, ok := k.Registry.ResolveModel(model)
	if !ok {
		return "", fmt.Errorf("no active provider serves model %q", model)
	}
	validationModel, _ := k.Profiles.ModelFor("quick")

	req := codeagent.Request{
		UserTask:     task,
		ProjectFiles: k.projectFilesForRequest(),
		Context:      k.contextFilesFor(thread),
		History:      thread.History(),
	}
	deps := codeagent.Deps{
		Root:            k.Root,
		Streamer:        streamer,
		Model:           resolvedModel,
		ValidationModel: validationModel,
		Library:         k.Library,
		Confirmer:       k.Confirmer,
		PlanConfirmer:   k.PlanConfirmer,
		Tracker:         k.Tracker,
	}

	result, err := codeagent.Run(ctx, deps, req)
	if err != nil {
		return "", err
	}
	if result.Cancelled {
		return "task cancelled, no files modified", nil
	}

	thread.AppendMessage(providers.Message{Role: providers.RoleUser, Content: task})
	reply := result.Chat
	if reply == "" {
		reply = fmt.Sprintf("changed files: %v", result.ChangedFiles)
	}
	thread.AppendMessage(providers.Message{Role: providers.RoleAssistant, Content: reply})
	thread.CommitSend(keysOf(result.EmbeddedFiles))
	if err := k.Store.Save(thread); err != nil {
		return "", err
	}
	return reply, nil
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// projectFilesForRequest returns the overview/conventions/tree labels
// codeagent.Request.ProjectFiles expects, empty when /projectcontext
// is off.
func (k *Kernel) projectFilesForRequest() map[string]string {
	if !k.projectContextOn {
		return nil
	}
	dir := filepath.Join(k.Root, ".jrdev", "contexts")
	files := map[string]string{
		"overview":    filepath.Join(dir, "overview.md"),
		"conventions": filepath.Join(dir, "conventions.md"),
		"tree":        filepath.Join(dir, "tree.txt"),
	}
	out := make(map[string]string)
	for label, path := range files {
		if _, err := os.Stat(path); err == nil {
			out[label] = path
		}
	}
	return out
}

func (k *Kernel) contextFilesFor(thread *threadstore.Thread) []codeagent.ContextFile {
	var out []codeagent.ContextFile
	for _, path := range thread.StagedPaths() {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		out = append(out, codeagent.ContextFile{Name: path, Content: string(content)})
	}
	return out
}

func (k *Kernel) cmdCost() string {
	totalsByModel := k.Tracker.GetUsage()
	if len(totalsByModel) == 0 {
		return "no usage recorded yet"
	}
	names := make([]string, 0, len(totalsByModel))
	for name := range totalsByModel {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	var totalCost float64
	for _, name := range names {
		totals := totalsByModel[name]
		inCost, outCost := 0, 0
		if entry, ok := k.ModelList.Get(name); ok {
			inCost, outCost = entry.InputCost, entry.OutputCost
		}
		cost := usage.Cost(totals.InputTokens, totals.OutputTokens, inCost, outCost)
		totalCost += cost
		fmt.Fprintf(&sb, "%-32s in=%-8d out=%-8d cost=$%.4f\n", name, totals.InputTokens, totals.OutputTokens, cost)
	}
	fmt.Fprintf(&sb, "total: $%.4f\n", totalCost)
	return sb.String()
}

func (k *Kernel) cmdHelp() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, c := range commandCatalog {
		fmt.Fprintf(&sb, "  %-16s %s\n", c.Name, c.Doc)
	}
	return sb.String()
}

func (k *Kernel) cmdInit(ctx context.Context) (string, error) {
	if err := k.RunInit(ctx); err != nil {
		return "", err
	}
	return "project context built: tree.txt, overview.md, conventions.md", nil
}

func (k *Kernel) cmdModel(args []string) (string, error) {
	if len(args) == 0 {
		return k.cmdModels(), nil
	}
	switch args[0] {
	case "list":
		return k.cmdModels(), nil
	case "set":
		if len(args) < 3 {
			return "", fmt.Errorf("usage: /model set <role> <name>")
		}
		role, name := args[1], args[2]
		if err := k.Profiles.SetProfile(role, name); err != nil {
			return "", err
		}
		if err := saveModelProfiles(k.HomeDir, modelProfiles{
			Profiles:  k.Profiles.Snapshot(),
			ChatModel: k.Profiles.ChatModel(),
		}); err != nil {
			return "", err
		}
		return fmt.Sprintf("profile %q set to %q", role, name), nil
	case "remove":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /model remove <name>")
		}
		if err := k.ModelList.Remove(args[1]); err != nil {
			return "", err
		}
		return k.persistModelList("removed " + args[1])
	case "add":
		if len(args) < 7 {
			return "", fmt.Errorf("usage: /model add <name> <provider> <think> <in$> <out$> <ctx>")
		}
		isThink, _ := strconv.ParseBool(args[3])
		inCost, err := parseCostPer10M(args[4])
		if err != nil {
			return "", err
		}
		outCost, err := parseCostPer10M(args[5])
		if err != nil {
			return "", err
		}
		ctxTokens, err := strconv.Atoi(args[6])
		if err != nil {
			return "", fmt.Errorf("invalid context token count %q: %w", args[6], err)
		}
		entry := models.ModelEntry{
			Name: args[1], Provider: args[2], IsThink: isThink,
			InputCost: inCost, OutputCost: outCost, ContextTokens: ctxTokens,
		}
		if err := k.ModelList.Add(entry); err != nil {
			return "", err
		}
		return k.persistModelList("added " + args[1])
	default:
		return "", fmt.Errorf("unknown /model subcommand %q", args[0])
	}
}

// parseCostPer10M converts a human-entered per-million-token dollar
// figure into the stored per-10M-token integer unit (S4: "1.5" -> 15).
func parseCostPer10M(s string) (int, error) {
	perMillion, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cost %q: %w", s, err)
	}
	return int(perMillion * 10), nil
}

func (k *Kernel) persistModelList(msg string) (string, error) {
	if err := saveUserModelConfig(k.HomeDir, userModelConfig{
		Models:  k.ModelList.List(),
		Ignored: k.ModelList.IgnoredNames(),
	}); err != nil {
		return "", err
	}
	return msg, nil
}

func (k *Kernel) cmdModels() string {
	var sb strings.Builder
	sb.WriteString("models:\n")
	for _, m := range k.ModelList.List() {
		fmt.Fprintf(&sb, "  %-32s provider=%-10s think=%-5v in=$%.2f/M out=$%.2f/M ctx=%d\n",
			m.Name, m.Provider, m.IsThink, float64(m.InputCost)/10, float64(m.OutputCost)/10, m.ContextTokens)
	}
	sb.WriteString("profiles:\n")
	for role, model := range k.Profiles.Snapshot() {
		fmt.Fprintf(&sb, "  %-16s -> %s\n", role, model)
	}
	return sb.String()
}

func (k *Kernel) cmdProjectContext(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /projectcontext on|off|status|list|view <path>|refresh <path>")
	}
	switch args[0] {
	case "on":
		k.projectContextOn = true
		return "project context enabled", nil
	case "off":
		k.projectContextOn = false
		return "project context disabled", nil
	case "status":
		state := "off"
		if k.projectContextOn {
			state = "on"
		}
		return fmt.Sprintf("project context: %s", state), nil
	case "list":
		return strings.Join(k.Index.GetFilePaths(), "\n"), nil
	case "view":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /projectcontext view <path>")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "refresh":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /projectcontext refresh <path>")
		}
		return k.refreshIndexEntry(args[1])
	default:
		return "", fmt.Errorf("unknown /projectcontext subcommand %q", args[0])
	}
}

func (k *Kernel) refreshIndexEntry(path string) (string, error) {
	summaryPath := path + ".summary.md"
	if err := k.Index.RecordSummary(path, summaryPath); err != nil {
		return "", err
	}
	return fmt.Sprintf("refreshed index entry for %s", path), nil
}

func (k *Kernel) cmdStateInfo() string {
	thread, _ := k.Store.GetCurrentThread()
	var sb strings.Builder
	fmt.Fprintf(&sb, "root: %s\n", k.Root)
	fmt.Fprintf(&sb, "chat model: %s\n", k.Profiles.ChatModel())
	fmt.Fprintf(&sb, "active providers: %v\n", k.Registry.ActiveNames())
	if thread != nil {
		fmt.Fprintf(&sb, "active thread: %s (messages=%d)\n", thread.ID, len(thread.History()))
	}
	state := "off"
	if k.projectContextOn {
		state = "on"
	}
	fmt.Fprintf(&sb, "project context: %s\n", state)
	fmt.Fprintf(&sb, "git base branch: %s\n", k.git.BaseBranch)
	return sb.String()
}

func (k *Kernel) cmdTasks() string {
	tasks := k.Monitor.List()
	if len(tasks) == 0 {
		return "no tasks"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-16s %-16s %-20s %-8s %-8s %-8s %-8s %-8s\n", "id", "task", "model", "tok_in", "tok_out", "tok/s", "status", "runtime")
	now := time.Now()
	for _, t := range tasks {
		fmt.Fprintf(&sb, "%-16s %-16s %-20s %-8d %-8d %-8.1f %-8s %-8s\n",
			t.ID, t.Name, t.Model, t.InputTokens, t.OutputTokens, t.TokPerSec, t.State, t.Runtime(now).Round(time.Second))
	}
	return sb.String()
}

func (k *Kernel) cmdCancel(args []string) string {
	if len(args) == 0 {
		return "usage: /cancel <id|all>"
	}
	if args[0] == "all" {
		n := k.asyncJobs.cancelAll()
		return fmt.Sprintf("cancelled %d task(s)", n)
	}
	if k.asyncJobs.cancelOne(args[0]) {
		return fmt.Sprintf("cancelled %s", args[0])
	}
	return fmt.Sprintf("no running task %q", args[0])
}

func (k *Kernel) cmdAsyncSend(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "usage: /asyncsend [filepath] <prompt>"
	}
	var contextFile string
	promptArgs := args
	if info, err := os.Stat(filepath.Join(k.Root, args[0])); err == nil && !info.IsDir() {
		contextFile = filepath.Join(k.Root, args[0])
		promptArgs = args[1:]
	}
	prompt := strings.Join(promptArgs, " ")
	if prompt == "" {
		return "usage: /asyncsend [filepath] <prompt>"
	}

	taskID := k.nextTaskID("asyncsend")
	model, _ := k.Profiles.ModelFor("advanced")
	if model == "" {
		model = k.Profiles.ChatModel()
	}
	k.Monitor.AddTask(taskID, "asyncsend", model)

	jobCtx, cancel := context.WithCancel(ctx)
	k.asyncJobs.register(taskID, cancel)

	go func() {
		defer k.Monitor.Finish(taskID)
		thread, err := k.Store.GetCurrentThread()
		if err != nil {
			return
		}
		var ctxFiles []codeagent.ContextFile
		if contextFile != "" {
			if data, err := os.ReadFile(contextFile); err == nil {
				ctxFiles = append(ctxFiles, codeagent.ContextFile{Name: contextFile, Content: string(data)})
			}
		}
		streamer, resolvedModel, ok := k.Registry.ResolveModel(model)
		if !ok {
			return
		}
		result, err := codeagent.Run(jobCtx, codeagent.Deps{
			Root: k.Root, Streamer: streamer, Model: resolvedModel,
			Library: k.Library, Confirmer: k.Confirmer, PlanConfirmer: k.PlanConfirmer, Tracker: k.Tracker,
		}, codeagent.Request{UserTask: prompt, Context: ctxFiles, History: thread.History()})
		if err != nil || result.Cancelled {
			return
		}
		thread.AppendMessage(providers.Message{Role: providers.RoleUser, Content: prompt})
		thread.AppendMessage(providers.Message{Role: providers.RoleAssistant, Content: result.Chat})
		thread.CommitSend(keysOf(result.EmbeddedFiles))
		_ = k.Store.Save(thread)
	}()

	return fmt.Sprintf("started background task %s", taskID)
}

func (k *Kernel) cmdThread(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /thread new|list|switch|rename|info|view")
	}
	switch args[0] {
	case "new":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		id, err := k.Store.CreateThread(name)
		if err != nil {
			return "", err
		}
		if err := k.Store.SwitchThread(id); err != nil {
			return "", err
		}
		return fmt.Sprintf("created and switched to thread %s", id), nil
	case "list":
		return strings.Join(k.Store.ListThreads(), "\n"), nil
	case "switch":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /thread switch <id>")
		}
		if err := k.Store.SwitchThread(args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("switched to thread %s", args[1]), nil
	case "rename":
		if len(args) < 3 {
			return "", fmt.Errorf("usage: /thread rename <id> <new-name>")
		}
		if err := k.Store.RenameThread(args[1], args[2]); err != nil {
			return "", err
		}
		return fmt.Sprintf("renamed %s to %s", args[1], args[2]), nil
	case "info":
		thread, err := k.Store.GetCurrentThread()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("id=%s name=%s messages=%d staged=%d embedded=%d usage_in=%d usage_out=%d",
			thread.ID, thread.Name, len(thread.History()), len(thread.StagedPaths()), len(thread.EmbeddedPaths()),
			thread.Usage.InputTokens, thread.Usage.OutputTokens), nil
	case "view":
		thread, err := k.Store.GetCurrentThread()
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, m := range thread.History() {
			fmt.Fprintf(&sb, "[%s] %s\n", m.Role, m.Content)
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unknown /thread subcommand %q", args[0])
	}
}

func (k *Kernel) cmdGit(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /git pr summary|review | /git config get|set|list")
	}
	switch args[0] {
	case "config":
		return k.cmdGitConfig(args[1:])
	case "pr":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /git pr summary|review")
		}
		return k.cmdGitPR(ctx, args[1])
	default:
		return "", fmt.Errorf("unknown /git subcommand %q", args[0])
	}
}

func (k *Kernel) cmdGitConfig(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /git config get|set|list")
	}
	switch args[0] {
	case "get":
		return k.git.BaseBranch, nil
	case "list":
		return fmt.Sprintf("base_branch=%s", k.git.BaseBranch), nil
	case "set":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /git config set <base_branch>")
		}
		k.git.BaseBranch = args[1]
		if err := saveGitConfig(k.Root, k.git); err != nil {
			return "", err
		}
		return fmt.Sprintf("base_branch set to %s", k.git.BaseBranch), nil
	default:
		return "", fmt.Errorf("unknown /git config subcommand %q", args[0])
	}
}

// cmdGitPR diffs the current branch against git.BaseBranch and asks
// the chat model to produce a summary or review comment. git is run
// directly through exec.CommandContext (no shell), and the diff call
// is bounded by a 30-second timeout.
func (k *Kernel) cmdGitPR(ctx context.Context, mode string) (string, error) {
	diffCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	diff, err := k.runGit(diffCtx, "diff", k.git.BaseBranch+"...HEAD")
	if err != nil {
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	if strings.TrimSpace(diff) == "" {
		return "no changes against " + k.git.BaseBranch, nil
	}

	if mode != "summary" && mode != "review" {
		return "", fmt.Errorf("unknown /git pr subcommand %q", mode)
	}

	model, _ := k.Profiles.ModelFor("advanced")
	if model == "" {
		model = k.Profiles.ChatModel()
	}
	streamer, resolvedModel, ok := k.Registry.ResolveModel(model)
	if !ok {
		return "", fmt.Errorf("no active provider serves model %q", model)
	}

	instruction := "Summarize this diff as a pull-request description."
	if mode == "review" {
		instruction = "Review this diff for bugs, risks, and style issues; list concrete findings."
	}
	msgs := []providers.Message{
		{Role: providers.RoleUser, Content: instruction + "\n\n" + diff},
	}
	var text string
	usg, err := streamer.Stream(ctx, providers.ChatRequest{Model: resolvedModel, Messages: msgs}, func(c providers.StreamChunk) {
		text += c.Content
	}, nil, providers.StreamOpts{TaskID: k.nextTaskID("git-pr-" + mode)})
	if err != nil {
		return "", err
	}
	if usg != nil {
		k.Tracker.AddUse(model, usg.InputTokens, usg.OutputTokens)
	}
	return text, nil
}

func (k *Kernel) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = k.Root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

func (k *Kernel) cmdLogin(args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: /login <provider-env-key> <api-key>")
	}
	envKey, value := args[0], args[1]
	path := filepath.Join(k.HomeDir, ".env")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("kernel: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s=%s\n", envKey, value); err != nil {
		return "", err
	}
	return fmt.Sprintf("saved %s; restart to pick up the new provider", envKey), nil
}

func (k *Kernel) cmdResearch(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("usage: /research <query>")
	}
	model, _ := k.Profiles.ModelFor("intermediate")
	if model == "" {
		model = k.Profiles.ChatModel()
	}
	streamer, resolvedModel, ok := k.Registry.ResolveModel(model)
	if !ok {
		return "", fmt.Errorf("no active provider serves model %q", model)
	}

	workerID := k.nextTaskID("research")
	k.Monitor.AddTask(workerID, "research", resolvedModel)
	defer k.Monitor.Finish(workerID)

	deps := k.researchDeps(streamer, resolvedModel, workerID)
	threadID := workerID
	result, err := research.Run(ctx, deps, query, threadID)
	if err != nil {
		return "", err
	}
	if result.HitMaxIter {
		return fmt.Sprintf("(stopped after %d iterations without a final summary)\n%s", result.Iterations, lastCallSummary(result)), nil
	}
	return result.Summary, nil
}

func lastCallSummary(r *research.Result) string {
	if len(r.CallsMade) == 0 {
		return ""
	}
	last := r.CallsMade[len(r.CallsMade)-1]
	return fmt.Sprintf("last action: %s", last.FormattedCmd())
}
