package chat

import "sync"

// Input is the text field a message is typed into.
type Input interface {
	Value() string
	SetValue(string)
}

// Draft is an Input safe for use from several goroutines.
type Draft struct {
	mu    sync.Mutex
	value string
}

// NewDraft returns a Draft holding text.
func NewDraft(text string) *Draft {
	return &Draft{value: text}
}

func (d *Draft) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

func (d *Draft) SetValue(s string) {
	d.mu.Lock()
	d.value = s
	d.mu.Unlock()
}

// Edit is a tentative change to an Input: the field has been cleared and
// the original text is held until the edit is committed or rolled back.
type Edit struct {
	in       Input
	original string
	done     bool
}

// BeginEdit captures the current text of in and clears the field.
func BeginEdit(in Input) *Edit {
	e := &Edit{in: in, original: in.Value()}
	in.SetValue("")
	return e
}

// Text returns the captured text.
func (e *Edit) Text() string {
	return e.original
}

// Commit confirms the edit. The field stays as it is.
func (e *Edit) Commit() {
	e.done = true
}

// Rollback puts the captured text back. If the user typed something new
// in the meantime, that text is kept and Rollback reports false.
func (e *Edit) Rollback() bool {
	if e.done {
		return false
	}
	e.done = true
	if e.in.Value() != "" {
		return false
	}
	e.in.SetValue(e.original)
	return true
}
