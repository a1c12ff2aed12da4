package discovery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"videointel/internal/models"
)

const (
	searchTimeout        = 25 * time.Second
	maxResultsPerLanguage = 15
	maxConcurrentSearches = 6
)

// searchTask is one (query, language) pair to execute against yt-dlp's
// search extractor.
type searchTask struct {
	query    string
	language string
}

// Searcher wraps yt-dlp's "ytsearchN:" pseudo-extractor, the same subprocess
// idiom used by the transcript package's Phase 2 methods, parameterized for
// video discovery instead of subtitle extraction (spec.md §4.9 step 2-3).
type Searcher struct {
	ytDlpPath string
	semaphore chan struct{}
}

func NewSearcher(ytDlpPath string) *Searcher {
	return &Searcher{ytDlpPath: ytDlpPath, semaphore: make(chan struct{}, maxConcurrentSearches)}
}

// searchParallel runs every task under the shared concurrency semaphore and
// returns all videos found, each tagged with the search language it came
// from. A failing task contributes no results but never fails the batch.
func (s *Searcher) searchParallel(ctx context.Context, tasks []searchTask) []models.VideoMetadata {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []models.VideoMetadata
	)
	for _, task := range tasks {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.semaphore <- struct{}{}
			defer func() { <-s.semaphore }()

			found, err := s.search(ctx, task.query, task.language, maxResultsPerLanguage)
			if err != nil {
				return
			}
			mu.Lock()
			results = append(results, found...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// search runs one ytsearchN query and parses the newline-delimited JSON
// output yt-dlp's --dump-json --flat-playlist mode produces.
func (s *Searcher) search(ctx context.Context, query, language string, maxResults int) ([]models.VideoMetadata, error) {
	if maxResults > 30 {
		maxResults = 30
	}
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	searchQuery := fmt.Sprintf("ytsearch%d:%s", maxResults, query)
	cmd := exec.CommandContext(ctx, s.ytDlpPath, "--dump-json", "--flat-playlist", "--no-warnings", "--geo-bypass", searchQuery)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp search %q: %w", query, err)
	}

	var results []models.VideoMetadata
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		meta, ok := parseSearchResult(line, language)
		if ok {
			results = append(results, meta)
		}
	}
	return results, nil
}

type rawSearchResult struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	ChannelID    string `json:"channel_id"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	Duration     float64 `json:"duration"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	UploadDate   string `json:"upload_date"`
}

func parseSearchResult(line, language string) (models.VideoMetadata, bool) {
	var raw rawSearchResult
	if err := json.Unmarshal([]byte(line), &raw); err != nil || raw.ID == "" {
		return models.VideoMetadata{}, false
	}
	desc := raw.Description
	if len(desc) > 1000 {
		desc = desc[:1000]
	}
	uploadDate := parseYtDlpDate(raw.UploadDate)
	return models.VideoMetadata{
		VideoID:         raw.ID,
		Title:           raw.Title,
		Channel:         raw.Channel,
		ChannelID:       raw.ChannelID,
		Description:     desc,
		ThumbnailURL:    raw.Thumbnail,
		DurationSeconds: int(raw.Duration),
		ViewCount:       raw.ViewCount,
		LikeCount:       raw.LikeCount,
		UploadDate:      uploadDate,
		SearchLanguage:  language,
	}, true
}

func parseYtDlpDate(s string) time.Time {
	if len(s) != 8 {
		return time.Time{}
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
