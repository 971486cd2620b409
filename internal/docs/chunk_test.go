package docs

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMakeChunksShortInput(t *testing.T) {
	out := makeChunks("short text", 100, 20)
	if len(out) != 1 || out[0] != "short text" {
		t.Fatalf("short input should produce one chunk, got %v", out)
	}
}

func TestMakeChunksEmptyInput(t *testing.T) {
	if out := makeChunks("  \n ", 100, 20); out != nil {
		t.Fatalf("blank input should produce no chunks, got %v", out)
	}
}

func TestMakeChunksOverlap(t *testing.T) {
	s := strings.Repeat("a", 250)
	out := makeChunks(s, 100, 20)
	if len(out) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(out))
	}
	for i, c := range out[:len(out)-1] {
		if len(c) != 100 {
			t.Fatalf("chunk %d has length %d", i, len(c))
		}
	}
	// 250 chars at stride 80: the tail starts at 160.
	if len(out[2]) != 90 {
		t.Fatalf("tail chunk has length %d", len(out[2]))
	}
}

func TestMakeChunksMultibyteInput(t *testing.T) {
	// 150 two-byte runes, 300 bytes: a size of 101 bytes lands every cut
	// inside a rune unless it gets backed up to the boundary.
	s := strings.Repeat("ä", 150)
	out := makeChunks(s, 101, 20)
	if len(out) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(out))
	}
	var rebuilt int
	for i, c := range out {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if len(c) > 101 {
			t.Fatalf("chunk %d is %d bytes, over the limit", i, len(c))
		}
		rebuilt += utf8.RuneCountInString(c)
	}
	// Every rune of the input must land in some chunk; overlap only adds.
	if rebuilt < 150 {
		t.Fatalf("chunks cover %d runes, input has 150", rebuilt)
	}
}

func TestChunkIDStable(t *testing.T) {
	h := sha1Hex("policy.txt\nsome content")[:12]
	if chunkID(h, 0) != chunkID(h, 0) {
		t.Fatalf("chunk ids must be deterministic")
	}
	if chunkID(h, 0) == chunkID(h, 1) {
		t.Fatalf("chunk ids must differ by position")
	}
	if !strings.HasSuffix(chunkID(h, 7), "#007") {
		t.Fatalf("unexpected id format: %s", chunkID(h, 7))
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	if got := normalize("  a\n\n b\tc  "); got != "a b c" {
		t.Fatalf("normalize = %q", got)
	}
}

func TestExtractText(t *testing.T) {
	if out, err := extractText("notes.md", []byte("# Title\nbody")); err != nil || out != "# Title\nbody" {
		t.Fatalf("md passthrough: %q %v", out, err)
	}
	html := []byte("<html><head><title>T</title></head><body><article><p>Hello readable world. This paragraph needs enough words to survive extraction heuristics.</p></article></body></html>")
	out, err := extractText("page.html", html)
	if err != nil {
		t.Fatalf("html extract: %v", err)
	}
	if !strings.Contains(out, "Hello readable world") {
		t.Fatalf("html text missing body: %q", out)
	}
	if _, err := extractText("slides.pptx", []byte("x")); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}
