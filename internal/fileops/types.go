// Package fileops implements the structured file-change envelope (C2):
// a tagged union of file mutations, anchor resolution against a
// language handler, fuzzy file-path resolution, unified diff
// rendering, and human-in-the-loop confirmation before any write.
package fileops

import "fmt"

// Operation is the FileChange tagged-union discriminant.
type Operation string

const (
	OpNew     Operation = "NEW"
	OpDelete  Operation = "DELETE"
	OpAdd     Operation = "ADD"
	OpReplace Operation = "REPLACE"
	OpRename  Operation = "RENAME"
)

// InsertLocation selects where an ADD's content lands when start_line
// isn't given directly. Exactly one of these should be set.
type InsertLocation struct {
	AfterFunction  string `json:"after_function,omitempty"`
	WithinFunction string `json:"within_function,omitempty"`
	PositionMarker string `json:"position_marker,omitempty"` // "start" | "end" | "before_return" | a line-content marker
	AfterMarker    string `json:"after_marker,omitempty"`
	Global         string `json:"global,omitempty"` // "start" | "end"
}

// FileChange is one entry of the LLM's structured `{changes: [...]}`
// output (§6 "Structured file-change envelope").
type FileChange struct {
	Operation Operation `json:"operation"`
	Filename  string    `json:"filename"`

	// ADD/DELETE by explicit line.
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`

	// ADD/NEW content.
	NewContent string `json:"new_content,omitempty"`

	// ADD via anchor instead of start_line.
	InsertLocation   *InsertLocation `json:"insert_location,omitempty"`
	IndentationHint  string          `json:"indentation_hint,omitempty"`

	// REPLACE.
	TargetContent  string `json:"target_content,omitempty"`
	ReplaceContent string `json:"replace_content,omitempty"`

	// RENAME.
	NewFilename string `json:"new_filename,omitempty"`

	// Rejected per §9 Open Question decision: use InsertLocation.AfterMarker instead.
	InsertAfterLine string `json:"insert_after_line,omitempty"`
}

// Envelope is the top-level `{changes: [FileChange]}` LLM output.
type Envelope struct {
	Changes []FileChange `json:"changes"`
}

// ValidOperations is the operation whitelist (§6). MODIFY is not a
// member and is not rewritten to REPLACE: Validate rejects it as an
// unknown operation.
var ValidOperations = map[Operation]bool{
	OpNew: true, OpDelete: true, OpAdd: true, OpReplace: true, OpRename: true,
}

// Validate checks the structural requirements of one FileChange before
// it reaches the apply phase.
func (c FileChange) Validate() error {
	if c.Filename == "" {
		return fmt.Errorf("fileops: change missing filename")
	}
	if c.InsertAfterLine != "" {
		return fmt.Errorf("fileops: insert_after_line is no longer supported, use insert_location.after_marker")
	}
	if !ValidOperations[c.Operation] {
		return fmt.Errorf("fileops: unknown operation %q", c.Operation)
	}

	switch c.Operation {
	case OpNew:
		if c.NewContent == "" {
			return fmt.Errorf("fileops: NEW change for %q missing new_content", c.Filename)
		}
	case OpDelete:
		if c.StartLine == 0 || c.EndLine == 0 {
			return fmt.Errorf("fileops: DELETE change for %q missing start_line/end_line", c.Filename)
		}
	case OpAdd:
		if c.NewContent == "" {
			return fmt.Errorf("fileops: ADD change for %q missing new_content", c.Filename)
		}
		if c.StartLine == 0 && c.InsertLocation == nil {
			return fmt.Errorf("fileops: ADD change for %q needs start_line or insert_location", c.Filename)
		}
	case OpReplace:
		if c.TargetContent == "" {
			return fmt.Errorf("fileops: REPLACE change for %q missing target_content", c.Filename)
		}
	case OpRename:
		if c.NewFilename == "" {
			return fmt.Errorf("fileops: RENAME change for %q missing new_filename", c.Filename)
		}
	}
	return nil
}

// ConfirmResult is the human-in-the-loop response vocabulary (§4.12).
type ConfirmResult string

const (
	ConfirmYes           ConfirmResult = "yes"
	ConfirmNo            ConfirmResult = "no"
	ConfirmRequestChange ConfirmResult = "request_change"
	ConfirmEdit          ConfirmResult = "edit"
	ConfirmAcceptAll     ConfirmResult = "accept_all"
)

// Confirmer is the human-in-the-loop capability C2 depends on. The
// default terminal realization lives in internal/kernel, built on huh.
type Confirmer interface {
	ConfirmDiff(filepath, diff string) (ConfirmResult, string, error)
}
