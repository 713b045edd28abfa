// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"archivist/internal/extraction"
	"archivist/internal/metadata"
	"archivist/internal/rules"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const briefingMetadata = `{
  "题名": "2020年度安全生产简报",
  "文件形成时间": "20200610",
  "归档年度": "2020",
  "实体分类名称": "业务类",
  "实体分类号": "YWL",
  "保管期限": "永久",
  "文件编号": "安委〔2020〕5号",
  "密级": "非涉密",
  "全宗号": "Q001"
}`

var fixedNow = time.Date(2024, time.March, 9, 10, 0, 0, 0, time.Local)

func clock() time.Time { return fixedNow }

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// buildTree lays out:
//
//	2021/简报/      metadata.json, ocr.txt, page1.jpg
//	2021/空文件夹/
//	broken/        metadata.json (not JSON)
//	onlyimages/    page.png
//	.hidden/x/     metadata.json
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "2021", "简报", MetadataFile), briefingMetadata)
	write(t, filepath.Join(root, "2021", "简报", "ocr.txt"), "本期通报全市安全生产形势。")
	write(t, filepath.Join(root, "2021", "简报", "page1.jpg"), "not really a jpeg")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2021", "空文件夹"), 0750))
	write(t, filepath.Join(root, "broken", MetadataFile), "抱歉，我无法完成")
	write(t, filepath.Join(root, "onlyimages", "page.png"), "png")
	write(t, filepath.Join(root, ".hidden", "x", MetadataFile), briefingMetadata)

	stamp := time.Date(2023, time.November, 2, 8, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(filepath.Join(root, "2021", "简报"), stamp, stamp))
	return root
}

func names(archives []Archive) []string {
	out := make([]string, len(archives))
	for i, a := range archives {
		out[i] = a.Name
	}
	return out
}

func TestScan(t *testing.T) {
	root := buildTree(t)

	archives, err := Scan(root, DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{"2021/简报", "broken", "onlyimages"}, names(archives))

	briefing := archives[0]
	assert.Equal(t, filepath.Join(root, "2021", "简报", MetadataFile), briefing.MetadataPath)
	assert.Equal(t, []string{filepath.Join(root, "2021", "简报", "page1.jpg")}, briefing.Images)
	assert.Empty(t, archives[2].MetadataPath)
}

func TestScan_Depth(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a", "b", "c", MetadataFile), "{}")

	archives, err := Scan(root, 2)
	require.NoError(t, err)
	assert.Empty(t, archives)

	archives, err = Scan(root, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/c"}, names(archives))
}

func TestScan_Errors(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), 2)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.txt")
	write(t, file, "x")
	_, err = Scan(file, 2)
	assert.ErrorContains(t, err, "not a directory")
}

func TestDigitizedTime(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2023, time.March, 5, 12, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(dir, stamp, stamp))

	assert.Equal(t, "2023年3月", DigitizedTime(Archive{Dir: dir}, clock))
	assert.Equal(t, "2024年3月", DigitizedTime(Archive{Dir: filepath.Join(dir, "gone")}, clock))
}

func TestDigitizedTime_ImageFileTime(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "page.jpg")
	write(t, img, "no exif here")
	_, ok := ImageTime(img)
	assert.False(t, ok)

	folder := time.Date(2019, time.January, 5, 12, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(img, folder.AddDate(1, 6, 0), folder.AddDate(1, 6, 0)))
	require.NoError(t, os.Chtimes(dir, folder, folder))

	imgTime, ok := FileTime(img)
	require.True(t, ok)
	got := DigitizedTime(Archive{Dir: dir, Images: []string{img}}, clock)
	assert.Equal(t, FormatDigitized(imgTime), got)
	assert.NotEqual(t, "2019年1月", got, "image file time wins over the folder")

	missing := filepath.Join(dir, "gone.jpg")
	assert.Equal(t, "2019年1月", DigitizedTime(Archive{Dir: dir, Images: []string{missing}}, clock))
}

func TestFileTime(t *testing.T) {
	_, ok := FileTime(filepath.Join(t.TempDir(), "gone"))
	assert.False(t, ok)

	path := filepath.Join(t.TempDir(), "f.txt")
	write(t, path, "x")
	got, ok := FileTime(path)
	require.True(t, ok)
	assert.False(t, got.IsZero())
}

func TestParseExifTime(t *testing.T) {
	got, ok := parseExifTime("2019:07:01 09:30:00")
	require.True(t, ok)
	assert.Equal(t, "2019年7月", FormatDigitized(got))

	_, ok = parseExifTime("2019-07-01 09:30:00")
	assert.True(t, ok)
	_, ok = parseExifTime("yesterday")
	assert.False(t, ok)
}

func TestProcessArchive(t *testing.T) {
	root := buildTree(t)
	archives, err := Scan(root, DefaultMaxDepth)
	require.NoError(t, err)

	p := NewProcessor(rules.New(nil), WithClock(clock))

	result, err := p.ProcessArchive(context.Background(), archives[0])
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, extraction.MethodStrict, result.ParseMethod)
	assert.Equal(t, "ocr.txt", result.TextSource)
	assert.Equal(t, []string{"page1.jpg"}, result.ImageNames)

	rec := result.Metadata
	assert.Nil(t, rec[metadata.FieldFondsNumber])
	assert.Equal(t, metadata.Period10Years, rec[metadata.FieldRetentionPeriod])
	assert.Equal(t, metadata.CategoryGeneral, rec[metadata.FieldCategoryName])
	assert.Equal(t, "ZHL", rec[metadata.FieldCategoryCode])
	assert.Equal(t, 1, rec[metadata.FieldPageCount])
	assert.Equal(t, "2021/简报", rec[metadata.FieldArchiveFolder])
	pageTime, ok := FileTime(filepath.Join(root, "2021", "简报", "page1.jpg"))
	require.True(t, ok)
	assert.Equal(t, FormatDigitized(pageTime), rec[metadata.FieldDigitizedTime])
	assert.True(t, result.Report.PeriodLocked)

	result, err = p.ProcessArchive(context.Background(), archives[1])
	assert.ErrorIs(t, err, extraction.ErrEmptyResponse)
	assert.Equal(t, StatusFailed, result.Status)

	result, err = p.ProcessArchive(context.Background(), archives[2])
	assert.ErrorIs(t, err, ErrNoMetadata)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 1, result.PageCount)
}

func TestProcessArchive_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := NewProcessor(nil).ProcessArchive(ctx, Archive{Name: "x", MetadataPath: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusError, result.Status)
}

type memorySink struct {
	mu    sync.Mutex
	runs  map[string]bool
	names []string
	fail  bool
}

func (s *memorySink) Save(_ context.Context, runID string, r *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		s.runs = map[string]bool{}
	}
	s.runs[runID] = true
	s.names = append(s.names, r.Name)
	if s.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestRun(t *testing.T) {
	root := buildTree(t)
	out := filepath.Join(t.TempDir(), "out")
	archives, err := Scan(root, DefaultMaxDepth)
	require.NoError(t, err)

	metrics := NewMetrics()
	sink := &memorySink{}
	p := NewProcessor(rules.New(nil), WithClock(clock), WithWorkers(2), WithMetrics(metrics), WithSink(sink))

	summary, err := p.Run(context.Background(), archives, out)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.TotalArchives)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 2, summary.FailCount)
	assert.Equal(t, 2, summary.TotalPages)
	for i, r := range summary.Results {
		assert.Equal(t, i+1, r.Index)
	}

	assert.Equal(t, names(archives), sink.names)
	assert.Len(t, sink.runs, 1)

	assert.FileExists(t, filepath.Join(out, "0001_2021__简报_result.json"))
	assert.FileExists(t, filepath.Join(out, "0002_broken_result.json"))
	assert.FileExists(t, filepath.Join(out, "0003_onlyimages_result.json"))

	data, err := os.ReadFile(filepath.Join(out, SummaryFile))
	require.NoError(t, err)
	var decoded struct {
		RunID        string `json:"run_id"`
		SuccessCount int    `json:"success_count"`
		Results      []struct {
			Name     string         `json:"archive_name"`
			Status   string         `json:"status"`
			Metadata map[string]any `json:"metadata"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, summary.RunID, decoded.RunID)
	assert.Equal(t, "success", decoded.Results[0].Status)
	assert.Equal(t, "ZHL", decoded.Results[0].Metadata[metadata.FieldCategoryCode])
	assert.Nil(t, decoded.Results[1].Metadata)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ArchivesTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ArchivesTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PeriodLocksTotal.WithLabelValues(rules.RuleBriefing)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CodeResolution.WithLabelValues(rules.Resolved.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DisclosureTotal.WithLabelValues(metadata.StatusOpen, "")))
	assert.Equal(t, float64(fixedNow.Unix()), testutil.ToFloat64(metrics.LastRunTimestamp))

	textfile := filepath.Join(t.TempDir(), "archivist.prom")
	require.NoError(t, metrics.WriteTextfile(textfile))
	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "archivist_batch_archives_total")
	assert.Contains(t, string(prom), "archivist_rules_decisions_total")
}

func TestRun_SinkErrorsAreReported(t *testing.T) {
	root := buildTree(t)
	archives, err := Scan(root, DefaultMaxDepth)
	require.NoError(t, err)

	p := NewProcessor(nil, WithSink(&memorySink{fail: true}))
	summary, err := p.Run(context.Background(), archives, "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 3, summary.TotalArchives)
}

func TestRun_Cancelled(t *testing.T) {
	root := buildTree(t)
	archives, err := Scan(root, DefaultMaxDepth)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := NewProcessor(nil).Run(ctx, archives, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.SuccessCount)
	assert.Equal(t, 3, summary.FailCount)
}

func TestResultFileName(t *testing.T) {
	assert.Equal(t, "0001_a_result.json", ResultFileName(1, "a"))
	assert.Equal(t, "0012_2021__会议纪要_result.json", ResultFileName(12, "2021/会议纪要"))
	assert.Equal(t, "0003_x__y_result.json", ResultFileName(3, `x\y`))
}

func TestWatch(t *testing.T) {
	root := buildTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan *Summary, 4)
	p := NewProcessor(nil, WithClock(clock))
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, root, WatchOptions{
			Debounce: 50 * time.Millisecond,
			OnRun:    func(s *Summary) { runs <- s },
		})
	}()

	select {
	case s := <-runs:
		assert.Equal(t, 3, s.TotalArchives)
	case <-time.After(5 * time.Second):
		t.Fatal("initial run did not happen")
	}

	write(t, filepath.Join(root, "2022", "新档案", MetadataFile), briefingMetadata)

	select {
	case s := <-runs:
		require.Equal(t, 1, s.TotalArchives)
		assert.Equal(t, "2022/新档案", s.Results[0].Name)
		assert.True(t, s.Results[0].OK())
	case <-time.After(5 * time.Second):
		t.Fatal("new archive was not processed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	metrics := NewMetrics()
	metrics.ArchivesTotal.WithLabelValues("success").Inc()

	path := filepath.Join(t.TempDir(), "archivist.prom")
	require.NoError(t, metrics.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), MetricsNamespace+"_")
	assert.Contains(t, string(data), `status="success"`)

	assert.Error(t, metrics.WriteTextfile(filepath.Join(t.TempDir(), "missing", "archivist.prom")))
}
