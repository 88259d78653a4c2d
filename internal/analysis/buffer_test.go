package analysis

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestBuffer_AppendJoinsWithNewline(t *testing.T) {
	b := NewBuffer("Client was served an eviction notice.")
	b.Append("Landlord claims arrears of Rs. 40,000.", SourceTranscription)

	want := "Client was served an eviction notice.\nLandlord claims arrears of Rs. 40,000."
	if got := b.Text(); got != want {
		t.Fatalf("unexpected text:\n got %q\nwant %q", got, want)
	}
}

func TestBuffer_AppendIntoEmptyBufferHasNoLeadingNewline(t *testing.T) {
	b := NewBuffer("")
	b.Append("Transcript of client call.", SourceTranscription)

	if got := b.Text(); got != "Transcript of client call." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestBuffer_AppendIgnoresBlankProducerOutput(t *testing.T) {
	b := NewBuffer("original")
	b.Append("   \n\t ", SourceDocument)

	if got := b.Text(); got != "original" {
		t.Fatalf("blank append changed text: %q", got)
	}
}

func TestBuffer_SetTextReplacesWholesale(t *testing.T) {
	b := NewBuffer("first draft")
	b.Append("producer text", SourceDocument)
	b.SetText("rewritten by the user")

	if got := b.Text(); got != "rewritten by the user" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestBuffer_ConcurrentAppendsAllLand(t *testing.T) {
	b := NewBuffer("")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Append(fmt.Sprintf("line %d", n), SourceTranscription)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(b.Text(), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
}
