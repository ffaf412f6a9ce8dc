package pipelinecache

import (
	"testing"
	"time"

	"perspectivelens/internal/core"
)

func TestPutThenGetReturnsStoredArtifact(t *testing.T) {
	c := New(time.Minute)
	artifact := &core.AnalysisArtifact{Input: core.Article{URL: "https://a.com"}}
	c.Put("key", artifact)

	got, ok := c.Get("key")
	if !ok || got != artifact {
		t.Fatalf("expected cached artifact to be returned, got %v ok=%v", got, ok)
	}
}

func TestGetMissesAfterExpiry(t *testing.T) {
	c := New(time.Millisecond)
	c.Put("key", &core.AnalysisArtifact{})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestClearRemovesAllEntries(t *testing.T) {
	c := New(time.Minute)
	c.Put("a", &core.AnalysisArtifact{})
	c.Put("b", &core.AnalysisArtifact{})
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Error("expected Clear to remove entry a")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected Clear to remove entry b")
	}
}

func TestKeyDistinguishesCountrySets(t *testing.T) {
	a := Key("query", []string{"US", "BR"})
	b := Key("query", []string{"US"})
	if a == b {
		t.Error("expected different country sets to produce different keys")
	}
}
