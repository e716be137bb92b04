package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/automator/platforms"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/config"
	"go-hopeforjob-automation/internal/dedup"
	"go-hopeforjob-automation/internal/filter"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/notify"
	"go-hopeforjob-automation/internal/secrets"
	"go-hopeforjob-automation/internal/store/postgres"

	"github.com/sirupsen/logrus"
)

func main() {
	userID := flag.String("user", "", "user whose platform credentials are used")
	platformList := flag.String("platforms", "linkedin,indeed", "comma separated platforms")
	keywords := flag.String("keywords", "golang", "search keywords")
	location := flag.String("location", "", "search location")
	minScore := flag.Int("min-score", 3, "minimum match score to report a job")
	cacheDir := flag.String("cache", ".cache", "directory of the seen-jobs cache")
	flag.Parse()

	//load config
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	log := logrus.NewEntry(config.NewLogger(cfg.LogLevel, cfg.LogFormat))
	if *userID == "" {
		log.Fatal("❌ -user is required")
	}

	//setup context with timeout = 10 mins
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Println("🚀 Starting one-shot scrape...")

	repo, err := postgres.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect database: %v", err)
	}
	defer repo.Close()

	var decrypter secrets.Decrypter = secrets.Plaintext{}
	if cfg.SecretsKey != "" {
		if decrypter, err = secrets.NewBox(cfg.SecretsKey); err != nil {
			log.Fatalf("❌ Invalid secrets key: %v", err)
		}
	}

	//init telegram bot, optional for a dry run
	var bot *notify.Telegram
	if cfg.Telegram.Token != "" {
		if bot, err = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log); err != nil {
			log.Fatalf("❌ Failed to init Telegram Bot: %v", err)
		}
		log.Println("🤖 Telegram Bot initialized.")
	}

	shots := browser.NewScreenshots(cfg.Browser.ScreenshotDir, nil, log)
	manager, err := browser.NewManager(cfg.Browser, shots, log)
	if err != nil {
		log.Fatalf("❌ Failed to init Playwright: %v", err)
	}
	defer manager.Close()

	deps := automator.Deps{
		Store:    repo,
		Secrets:  decrypter,
		Log:      log,
		Pacing:   browser.PacingFromConfig(cfg.Pacing),
		Timeouts: browser.TimeoutsFromConfig(cfg.Automation),
		Limits:   automator.Limits{MaxSteps: cfg.Automation.MaxSteps, MaxPages: cfg.Automation.MaxPages},
	}
	registry := platforms.Registry()
	criteria := automator.Criteria{Keywords: *keywords, Location: *location, MaxPages: cfg.Automation.MaxPages}
	fc := filter.Criteria{Keywords: *keywords, Location: *location}

	//run scrapers loop
	var allJobs []models.JobListing
	for _, name := range strings.Split(*platformList, ",") {
		name = strings.TrimSpace(name)
		log.Printf("▶️ Starting scraper: %s", name)
		jobs, err := scrape(ctx, manager, registry, deps, *userID, name, criteria)
		if err != nil {
			log.WithError(err).Errorf("❌ Error running scraper %s", name)
			if bot != nil {
				if sendErr := bot.SendError(fmt.Errorf("scraper %s: %w", name, err)); sendErr != nil {
					log.WithError(sendErr).Warn("⚠️ Failed to send error to Telegram")
				}
			}
			continue
		}

		var filtered []models.JobListing
		for _, job := range jobs {
			if !filter.ShouldIncludeJob(job, fc, *minScore) {
				continue
			}
			job.MatchScore = filter.CalculateMatchScore(job, fc)
			if _, err := repo.UpsertJobListing(ctx, &job); err != nil {
				log.WithError(err).Warn("⚠️ Could not store job listing")
			}
			filtered = append(filtered, job)
		}
		log.Printf("✅ Scraper %s finished. Kept %d/%d jobs.", name, len(filtered), len(jobs))
		allJobs = append(allJobs, filtered...)
	}

	sort.Slice(allJobs, func(i, j int) bool {
		return allJobs[i].MatchScore > allJobs[j].MatchScore
	})

	//dedup jobs
	seen := dedup.Open(*cacheDir, 30*24*time.Hour, log)
	var unseen []models.JobListing
	for _, job := range allJobs {
		if seen.Add(job.URL) {
			unseen = append(unseen, job)
		}
	}
	log.Printf("🔍 Deduplication: %d total -> %d unseen jobs", len(allJobs), len(unseen))

	if bot != nil {
		for _, job := range unseen {
			if err := bot.SendJob(job); err != nil {
				log.WithError(err).Warn("⚠️ Failed to send job to Telegram")
			}
			//1 second delay to avoid 429
			if err := browser.RandomDelay(ctx, time.Second, time.Second); err != nil {
				break
			}
		}
	}
	if err := seen.Save(); err != nil {
		log.WithError(err).Warn("⚠️ Failed to save seen jobs")
	}

	saveJobs(log, unseen)
	log.Println("🏁 Execution finished.")
}

// scrape runs one platform in its own browser.
func scrape(ctx context.Context, m *browser.Manager, registry automator.Registry, deps automator.Deps, userID, platform string, c automator.Criteria) ([]models.JobListing, error) {
	sess, err := m.Open(ctx, platform)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	a, err := registry.New(platform, sess, automator.Run{UserID: userID}, deps)
	if err != nil {
		return nil, err
	}
	res, err := a.ScrapeJobs(ctx, c)
	if err != nil {
		return nil, err
	}
	return res.Jobs, nil
}

func saveJobs(log *logrus.Entry, jobs []models.JobListing) {
	if len(jobs) == 0 {
		log.Println("ℹ️ No jobs to save.")
		return
	}

	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.WithError(err).Warn("⚠️ Failed to create logs directory")
		return
	}

	//gen filename: job-search-YYYY-MM-DD.json
	filePath := filepath.Join(logDir, fmt.Sprintf("job-search-%s.json", time.Now().Format("2006-01-02")))
	data, err := json.MarshalIndent(jobs, "", " ")
	if err != nil {
		log.WithError(err).Warn("⚠️ Failed to marshal jobs to JSON")
		return
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.WithError(err).Warn("⚠️ Failed to write logs file")
		return
	}
	log.Printf("📁 Results saved to %s", filePath)
}
