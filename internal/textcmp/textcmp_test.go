package textcmp

import "testing"

func TestNormalizeStripsPunctuationAndCase(t *testing.T) {
	got := Normalize("Hello,  World!  This is a TEST.")
	want := "hello world this is a test"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeCJKPunctuation(t *testing.T) {
	got := Normalize("你好，世界！这是一个测试。")
	want := "你好世界这是一个测试"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompareIdenticalAfterNormalization(t *testing.T) {
	c := Compare("Hello, world!", "hello world")
	if c.Distance != 0 {
		t.Fatalf("expected zero distance, got %d", c.Distance)
	}
	if c.Similarity != 1.0 {
		t.Fatalf("expected similarity 1.0, got %f", c.Similarity)
	}
}

func TestCompareDifferentText(t *testing.T) {
	c := Compare("hello world", "hello word")
	if c.Distance != 1 {
		t.Fatalf("expected distance 1, got %d", c.Distance)
	}
	if c.Similarity <= 0.8 || c.Similarity >= 1.0 {
		t.Fatalf("expected similarity in (0.8, 1.0), got %f", c.Similarity)
	}
}

func TestCompareEmptyStrings(t *testing.T) {
	c := Compare("", "")
	if c.Similarity != 1.0 {
		t.Fatalf("expected similarity 1.0 for two empty strings, got %f", c.Similarity)
	}
}
