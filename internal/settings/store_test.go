package settings

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

func TestQueueConfigDefaultsWhenMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), zerolog.Nop())

	cfg := store.QueueConfig()
	if cfg.MaxWaitSecs != types.DefaultQueueConfig().MaxWaitSecs || !cfg.AutoAssign {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestSaveAndReread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue-settings.json")
	store := NewFileStore(path, zerolog.Nop())

	cfg := types.DefaultQueueConfig()
	cfg.MaxWaitSecs = 90
	cfg.VIPContacts = []string{"+5511999990000"}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := store.QueueConfig()
	if got.MaxWaitSecs != 90 || len(got.VIPContacts) != 1 {
		t.Errorf("unexpected config after save: %+v", got)
	}

	// Edits made outside the process are picked up on the next read
	if err := os.WriteFile(path, []byte(`{"maxWaitSecs": 15, "autoAssign": false}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got = store.QueueConfig()
	if got.MaxWaitSecs != 15 || got.AutoAssign {
		t.Errorf("expected external edit to apply, got %+v", got)
	}
	if len(got.UrgentKeywords) == 0 {
		t.Error("expected omitted fields to keep defaults")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected temp files cleaned up, found %d entries", len(entries))
	}
}

func TestCorruptFileServesLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue-settings.json")
	store := NewFileStore(path, zerolog.Nop())

	cfg := types.DefaultQueueConfig()
	cfg.MaxWaitSecs = 42
	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}
	store.QueueConfig()

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := store.QueueConfig(); got.MaxWaitSecs != 42 {
		t.Errorf("expected last good config, got %+v", got)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), zerolog.Nop())

	tests := []struct {
		name   string
		mutate func(*types.QueueConfig)
	}{
		{"negative wait", func(c *types.QueueConfig) { c.MaxWaitSecs = -1 }},
		{"bad timezone", func(c *types.QueueConfig) {
			c.BusinessHours.Enabled = true
			c.BusinessHours.Timezone = "Mars/Olympus"
		}},
		{"close before open", func(c *types.QueueConfig) {
			c.BusinessHours.Enabled = true
			c.BusinessHours.Open = "18:00"
			c.BusinessHours.Close = "09:00"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultQueueConfig()
			tt.mutate(&cfg)
			if err := store.Save(cfg); !errors.Is(err, errs.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), zerolog.Nop())
	h := NewHandler(store, zerolog.Nop())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"maxWaitSecs": 120, "autoAssign": true}`, http.StatusOK},
		{"invalid json", `{`, http.StatusBadRequest},
		{"invalid value", `{"maxWaitSecs": -5}`, http.StatusBadRequest},
		{"wrong field type", `{"maxWaitSecs": "soon"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.PutQueue(rec, httptest.NewRequest(http.MethodPut, "/api/settings/queue", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	h.GetQueue(rec, httptest.NewRequest(http.MethodGet, "/api/settings/queue", nil))
	if !strings.Contains(rec.Body.String(), `"maxWaitSecs":120`) {
		t.Errorf("expected saved config, got %s", rec.Body.String())
	}
}

func TestUpdateFailureLeavesFileUntouched(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), zerolog.Nop())
	if err := store.Save(types.QueueConfig{MaxWaitSecs: 60}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	if _, err := store.Update(func(cfg *types.QueueConfig) error {
		cfg.MaxWaitSecs = 999
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if _, err := store.Update(func(cfg *types.QueueConfig) error {
		cfg.MaxWaitSecs = -1
		return nil
	}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := store.QueueConfig().MaxWaitSecs; got != 60 {
		t.Errorf("expected 60 kept, got %d", got)
	}
}

func TestConcurrentUpdatesKeepEveryChange(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), zerolog.Nop())

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			contact := "55119" + strings.Repeat("0", i)
			if _, err := store.Update(func(cfg *types.QueueConfig) error {
				cfg.VIPContacts = append(cfg.VIPContacts, contact)
				return nil
			}); err != nil {
				t.Errorf("update %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(store.QueueConfig().VIPContacts); got != writers {
		t.Errorf("expected %d VIP contacts, got %d", writers, got)
	}
}

func TestConcurrentPartialPuts(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), zerolog.Nop())
	h := NewHandler(store, zerolog.Nop())

	bodies := []string{`{"maxWaitSecs": 45}`, `{"autoAssign": false}`, `{"urgentKeywords": ["down"]}`}
	var wg sync.WaitGroup
	for _, body := range bodies {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.PutQueue(rec, httptest.NewRequest(http.MethodPut, "/api/settings/queue", strings.NewReader(body)))
			if rec.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", body, rec.Code)
			}
		}(body)
	}
	wg.Wait()

	cfg := store.QueueConfig()
	if cfg.MaxWaitSecs != 45 || cfg.AutoAssign || len(cfg.UrgentKeywords) != 1 {
		t.Errorf("expected all three partial updates kept, got %+v", cfg)
	}
}
