package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/log"
	"github.com/pkoski/teleguide/internal/store/storetest"
)

func TestWriteCategory(t *testing.T) {
	fake := storetest.NewFake()
	fake.Seed("p1", &domain.Bundle{
		Records: []domain.Record{
			{ID: "1", Name: "World News", CategoryID: "news", ContentType: domain.ContentLive, URL: "http://host/live/1.ts"},
			{ID: "2", Name: "Weather 24", CategoryID: "news", ContentType: domain.ContentLive, URL: "http://host/live/2.ts"},
			{ID: "3", Name: "No Stream", CategoryID: "news", ContentType: domain.ContentLive},
		},
	})
	e := New(fake, log.Null())

	var buf bytes.Buffer
	n, err := e.WriteCategory(context.Background(), &buf, "p1", domain.ContentLive, "news")
	if err != nil {
		t.Fatalf("WriteCategory: %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2 (record without URL skipped)", n)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "#EXTM3U") {
		t.Errorf("output missing #EXTM3U header:\n%s", out)
	}
	for _, want := range []string{"World News", "Weather 24", "http://host/live/1.ts", "http://host/live/2.ts"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "No Stream") {
		t.Error("record without URL was exported")
	}
}

func TestWriteCategoryPagesThroughLargeSets(t *testing.T) {
	fake := storetest.NewFake()
	b := &domain.Bundle{}
	for i := 0; i < 1200; i++ {
		b.Records = append(b.Records, domain.Record{
			ID:          fmt.Sprintf("%04d", i),
			Name:        fmt.Sprintf("Channel %04d", i),
			CategoryID:  "c",
			ContentType: domain.ContentLive,
			URL:         fmt.Sprintf("http://host/%d.ts", i),
		})
	}
	fake.Seed("p1", b)
	e := New(fake, log.Null())

	var buf bytes.Buffer
	n, err := e.WriteCategory(context.Background(), &buf, "p1", domain.ContentLive, "c")
	if err != nil {
		t.Fatalf("WriteCategory: %v", err)
	}
	if n != 1200 {
		t.Errorf("written = %d, want 1200", n)
	}
	if fake.QueryCalls < 3 {
		t.Errorf("query calls = %d, want paged reads", fake.QueryCalls)
	}
}

func TestWriteCategoryEmpty(t *testing.T) {
	e := New(storetest.NewFake(), log.Null())
	var buf bytes.Buffer
	n, err := e.WriteCategory(context.Background(), &buf, "p1", domain.ContentLive, "c")
	if err != nil {
		t.Fatalf("WriteCategory: %v", err)
	}
	if n != 0 {
		t.Errorf("written = %d, want 0", n)
	}
}
