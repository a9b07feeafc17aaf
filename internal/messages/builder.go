// Package messages implements the stateful message builder (C4): it
// assembles a provider-ready message list from a system prompt,
// historical messages, project context, and a user section whose
// pending file context is deduped against what's already embedded.
package messages

import (
	"fmt"
	"strings"

	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
)

// Builder is a one-shot, single-use assembler: build() never mutates
// the originating Thread (§4.3 invariant); the caller merges
// getFiles() into thread.embedded_files only if the send succeeds.
type Builder struct {
	library  *prompts.Library
	messages []providers.Message

	embedded map[string]bool // files to suppress re-embedding (already embedded)
	pending  []pendingFile   // files queued via addContext, to embed in this build

	userSection strings.Builder

	filesEmbeddedThisBuild map[string]bool
}

type pendingFile struct {
	path    string
	content string
}

// NewBuilder starts an empty builder.
func NewBuilder(library *prompts.Library) *Builder {
	return &Builder{
		library:                library,
		embedded:               make(map[string]bool),
		filesEmbeddedThisBuild: make(map[string]bool),
	}
}

// AddSystemMessage appends a literal system message.
func (b *Builder) AddSystemMessage(s string) *Builder {
	b.messages = append(b.messages, providers.Message{Role: providers.RoleSystem, Content: s})
	return b
}

// LoadSystemPrompt loads a named prompt from the library (C1) and adds
// it as a system message.
func (b *Builder) LoadSystemPrompt(key string) error {
	text, err := b.library.Load(key)
	if err != nil {
		return fmt.Errorf("messages: load system prompt: %w", err)
	}
	b.AddSystemMessage(text)
	return nil
}

// AddHistoricalMessages appends prior conversation turns verbatim.
func (b *Builder) AddHistoricalMessages(history []providers.Message) *Builder {
	b.messages = append(b.messages, history...)
	return b
}

// AddProjectFiles adds the file tree, overview, and conventions
// markdown (from C11) as a system message block.
func (b *Builder) AddProjectFiles(tree, overview, conventions string) *Builder {
	var sb strings.Builder
	sb.WriteString("# Project structure\n\n")
	sb.WriteString(tree)
	if overview != "" {
		sb.WriteString("\n\n# Overview\n\n")
		sb.WriteString(overview)
	}
	if conventions != "" {
		sb.WriteString("\n\n# Conventions\n\n")
		sb.WriteString(conventions)
	}
	b.AddSystemMessage(sb.String())
	return b
}

// AddContext queues file paths (and their contents) for embedding at
// finalizeUserSection, deduped against the already-embedded set.
func (b *Builder) AddContext(files map[string]string) *Builder {
	for path, content := range files {
		if b.embedded[path] {
			continue
		}
		b.pending = append(b.pending, pendingFile{path: path, content: content})
	}
	return b
}

// SetEmbeddedFiles marks paths as already folded into a prior message,
// suppressing re-embedding this build (mirrors Thread.embedded_files).
func (b *Builder) SetEmbeddedFiles(paths map[string]bool) *Builder {
	for p := range paths {
		b.embedded[p] = true
	}
	return b
}

// StartUserSection begins accumulating the running user message text.
func (b *Builder) StartUserSection() *Builder {
	b.userSection.Reset()
	return b
}

// AppendToUserSection appends text to the running user message.
func (b *Builder) AppendToUserSection(s string) *Builder {
	b.userSection.WriteString(s)
	return b
}

// FinalizeUserSection concatenates the running user text and, when any
// pending file remains after dedup (each file at most once per build),
// a "USER CONTEXT:" header followed by those files' contents, and
// appends the result as one user message (§4.3).
func (b *Builder) FinalizeUserSection() *Builder {
	var sb strings.Builder
	sb.WriteString(b.userSection.String())

	var contextBlock strings.Builder
	for _, pf := range b.pending {
		if b.filesEmbeddedThisBuild[pf.path] {
			continue // a file is embedded at most once per build
		}
		contextBlock.WriteString(fmt.Sprintf("\n## %s\n\n%s\n", pf.path, pf.content))
		b.filesEmbeddedThisBuild[pf.path] = true
	}
	if contextBlock.Len() > 0 {
		sb.WriteString("\n\nUSER CONTEXT:\n")
		sb.WriteString(contextBlock.String())
	}

	b.messages = append(b.messages, providers.Message{Role: providers.RoleUser, Content: sb.String()})
	b.userSection.Reset()
	b.pending = nil
	return b
}

// Build returns the assembled ordered message list.
func (b *Builder) Build() []providers.Message {
	out := make([]providers.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// GetFiles returns the set of paths actually embedded during this
// build, for the caller to merge into thread.embedded_files iff the
// send succeeds.
func (b *Builder) GetFiles() map[string]bool {
	out := make(map[string]bool, len(b.filesEmbeddedThisBuild))
	for p := range b.filesEmbeddedThisBuild {
		out[p] = true
	}
	return out
}
