package analysis

import (
	"strings"
	"sync"
)

type Source string

const (
	SourceManual        Source = "manual"
	SourceTranscription Source = "transcription"
	SourceDocument      Source = "document"
)

// Buffer holds the current case-brief text for one session. Producers
// (transcription, document extraction) append; the user edits freely.
// No history is retained.
type Buffer struct {
	mu   sync.Mutex
	text string
}

func NewBuffer(initial string) *Buffer {
	return &Buffer{text: initial}
}

// Append adds producer output to the end of the brief. Producer text never
// overwrites what is already there.
func (b *Buffer) Append(text string, source Source) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.text == "" {
		b.text = text
		return
	}
	b.text = b.text + "\n" + text
}

// SetText replaces the brief wholesale. Only the user edits this way.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}
