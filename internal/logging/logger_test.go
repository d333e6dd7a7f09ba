package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func initTemp(t *testing.T, o Options) string {
	t.Helper()
	dir := t.TempDir()
	o.Dir = dir
	if err := Initialize(o); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	t.Cleanup(func() { _ = Initialize(Options{}) })
	return dir
}

func readCategoryLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	CloseAll()
	name := time.Now().Format("2006-01-02") + "_" + string(cat) + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("log file for %s missing: %v", cat, err)
	}
	return string(data)
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	dir := initTemp(t, Options{DebugMode: true, Level: "debug"})

	categories := []Category{
		CategoryBoot, CategoryAPI, CategoryTrace, CategoryWorkflow, CategorySession,
		CategoryStore, CategoryStream, CategoryUI, CategoryUsage, CategorySmoke,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	CloseAll()
	for _, cat := range categories {
		content := readCategoryLog(t, dir, cat)
		if !strings.Contains(content, "Test info message for "+string(cat)) {
			t.Errorf("log for %s missing info entry:\n%s", cat, content)
		}
		if !strings.Contains(content, "Test debug message") {
			t.Errorf("log for %s missing debug entry", cat)
		}
	}
}

func TestProductionModeWritesNothing(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir}); err != nil {
		t.Fatal(err)
	}

	API("should be dropped %d", 1)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no log files in production mode, got %d", len(entries))
	}
}

func TestCategoryFilter(t *testing.T) {
	initTemp(t, Options{DebugMode: true, Categories: map[string]bool{"stream": false}})

	if IsCategoryEnabled(CategoryStream) {
		t.Error("stream should be disabled")
	}
	if !IsCategoryEnabled(CategoryAPI) {
		t.Error("api should default to enabled")
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := initTemp(t, Options{DebugMode: true, Level: "warn"})

	Get(CategoryStore).Info("quiet info")
	Get(CategoryStore).Warn("loud warning")

	content := readCategoryLog(t, dir, CategoryStore)
	if strings.Contains(content, "quiet info") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(content, "loud warning") {
		t.Error("warning should be written")
	}
}

func TestSetLevelAtRuntime(t *testing.T) {
	dir := initTemp(t, Options{DebugMode: true, Level: "error"})

	Get(CategoryUI).Info("before")
	SetLevel("info")
	Get(CategoryUI).Info("after")

	content := readCategoryLog(t, dir, CategoryUI)
	if strings.Contains(content, "before") {
		t.Error("entry logged before SetLevel should be filtered")
	}
	if !strings.Contains(content, "after") {
		t.Error("entry logged after SetLevel should be written")
	}
}

func TestRequestLoggerCarriesTraceID(t *testing.T) {
	dir := initTemp(t, Options{DebugMode: true, JSONFormat: true})

	WithRequestID(CategoryAPI, "trace-123").WithField("status", 503).Warn("GET /tasks/my failed")

	content := readCategoryLog(t, dir, CategoryAPI)
	if !strings.Contains(content, `"trace_id":"trace-123"`) {
		t.Errorf("expected trace_id field, got:\n%s", content)
	}
	if !strings.Contains(content, `"status":503`) {
		t.Errorf("expected status field, got:\n%s", content)
	}
}

func TestConcurrentGet(t *testing.T) {
	initTemp(t, Options{DebugMode: true})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Get(CategoryWorkflow).Info("worker %d", n)
		}(i)
	}
	wg.Wait()

	if Get(CategoryWorkflow) != Get(CategoryWorkflow) {
		t.Error("expected a cached logger per category")
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer(CategorySmoke, "noop")
	if d := timer.Stop(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
	if d := StartTimer(CategorySmoke, "noop").StopWithThreshold(time.Hour); d > time.Hour {
		t.Errorf("unexpected duration %v", d)
	}
}
