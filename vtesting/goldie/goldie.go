package goldie

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"www.velocidex.com/golang/ntfsmon/json"
)

func Assert(t *testing.T, filename string, golden []byte) {
	t.Helper()

	g := goldie.New(t)
	_ = g.WithFixtureDir("fixtures")
	g.Assert(t, filename, golden)
}

func AssertJson(t *testing.T, filename string, golden interface{}) {
	t.Helper()

	serialized, err := json.MarshalIndent(golden)
	if err != nil {
		t.Fatalf("AssertJson: %v", err)
	}

	Assert(t, filename, serialized)
}
