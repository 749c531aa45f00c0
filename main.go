package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"medialib/backfill"
	"medialib/config"
	"medialib/database"
	"medialib/hash"
	"medialib/logging"
	"medialib/probe"
	"medialib/sampler"
	"medialib/scanner"
	"medialib/signalhandler"
	"medialib/similarity"
	"medialib/types"
	"medialib/utils"
)

func main() {
	ctx := signalhandler.SetupContext()
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	args := utils.ParseArguments()
	command, hasCommand := args["command"]
	if !hasCommand {
		utils.PrintUsage()
		os.Exit(1)
	}

	configPath := args["config"]
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Path == "medialib.db" {
		cfg.Database.Path = utils.GetDefaultDatabasePath()
	}
	if customDB, ok := args["database"]; ok && customDB != "" {
		cfg.Database.Path = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		// Allow --db as an alias for --database
		cfg.Database.Path = customDB
	}
	if _, ok := args["debug"]; ok {
		cfg.Logging.Level = "debug"
		cfg.Logging.Pretty = true
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)
	if err != nil {
		fmt.Printf("Error setting up logging: %v\n", err)
		os.Exit(1)
	}

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("cannot open database")
	}
	defer store.Close()

	app := &application{ctx: ctx, cfg: cfg, store: store, logger: logger}

	switch command {
	case "scan":
		app.handleScan(args)
	case "backfill":
		app.handleBackfill(args)
	case "rehash":
		app.handleRehash(args)
	case "similar":
		app.handleSimilar(args)
	case "groups":
		app.handleGroups(args)
	case "exact":
		app.handleExact()
	case "morelike":
		app.handleMoreLikeThis(args)
	case "stats":
		app.handleStats()
	case "tag":
		app.handleTag(args)
	case "exclude":
		app.handleExclude(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

type application struct {
	ctx    context.Context
	cfg    *config.Config
	store  *database.Store
	logger zerolog.Logger
}

func (a *application) newSampler() *sampler.Sampler {
	source := sampler.NewFFmpegSource(a.cfg.FFmpeg.Path)
	fallback := sampler.ImageSource{}
	timeout := time.Duration(a.cfg.FFmpeg.TimeoutSeconds) * time.Second
	return sampler.New(source, fallback, timeout, a.logger)
}

func (a *application) newEngine() *similarity.Engine {
	opts := similarity.DefaultOptions()
	opts.Thresholds = hash.Thresholds{
		Exact:       a.cfg.Similarity.ExactThreshold,
		VerySimilar: a.cfg.Similarity.VerySimilarThreshold,
		Similar:     a.cfg.Similarity.SimilarThreshold,
	}
	return similarity.NewEngine(a.store, opts, a.logger)
}

func (a *application) handleScan(args map[string]string) {
	folderPath, hasFolder := args["folder"]
	if !hasFolder || folderPath == "" {
		fmt.Println("Error: Missing folder path (use --folder=PATH)")
		os.Exit(1)
	}
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		a.logger.Fatal().Err(err).Str("path", folderPath).Msg("cannot access folder")
	}
	if !folderInfo.IsDir() {
		a.logger.Fatal().Str("path", folderPath).Msg("path is not a directory")
	}

	_, rehash := args["rehash"]
	workers := utils.IntArg(args, "workers", a.cfg.Scan.Workers)

	// The prober is optional; indexing proceeds without durations when
	// exiftool is not installed.
	var prober scanner.Prober
	if p, err := probe.New(); err != nil {
		a.logger.Warn().Err(err).Msg("exiftool unavailable, video durations will be unknown")
	} else {
		defer p.Close()
		prober = p
	}

	s := scanner.New(a.store, prober, a.logger)
	if err := s.ScanAndStoreFolder(scanner.Options{
		FolderPath: folderPath,
		Rehash:     rehash,
		Workers:    workers,
	}); err != nil {
		a.logger.Fatal().Err(err).Msg("scan failed")
	}

	fmt.Println("Run 'backfill' to fingerprint newly indexed items.")
}

func (a *application) handleBackfill(args map[string]string) {
	limit := utils.IntArg(args, "limit", 0)

	pipeline := backfill.NewPipeline(a.store, a.newSampler(), a.logger)
	startTime := time.Now()

	res, err := pipeline.Run(a.ctx, limit, func(current, total int, id int64) {
		fmt.Printf("\rFingerprinting: %d/%d", current, total)
	})
	fmt.Println()
	if err != nil {
		a.logger.Fatal().Err(err).Msg("backfill aborted")
	}

	fmt.Printf("Backfill complete in %v: %d fingerprinted, %d failed.\n",
		time.Since(startTime).Round(time.Second), res.Processed, res.Failed)

	stats, err := pipeline.Stats()
	if err == nil {
		fmt.Printf("Coverage: %d/%d items (%.1f%%)\n", stats.Fingerprinted, stats.Total, stats.Percent)
	}
}

func (a *application) handleRehash(args map[string]string) {
	id, ok := utils.Int64Arg(args, "id")
	if !ok {
		fmt.Println("Error: Missing media id (use --id=ID)")
		os.Exit(1)
	}

	pipeline := backfill.NewPipeline(a.store, a.newSampler(), a.logger)
	if err := pipeline.UpdateHash(a.ctx, id); err != nil {
		a.logger.Fatal().Err(err).Int64("id", id).Msg("rehash failed")
	}
	fmt.Printf("Recomputed fingerprint for item %d.\n", id)
}

func (a *application) handleSimilar(args map[string]string) {
	id, ok := utils.Int64Arg(args, "id")
	if !ok {
		fmt.Println("Error: Missing media id (use --id=ID)")
		os.Exit(1)
	}
	threshold := utils.IntArg(args, "threshold", a.cfg.Similarity.MinSimilarity)
	limit := utils.IntArg(args, "limit", 0)
	_, sameKind := args["same-kind"]

	matches, err := a.newEngine().FindSimilar(id, threshold, limit, sameKind)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("similarity search failed")
	}

	if len(matches) == 0 {
		fmt.Println("No matches found.")
		return
	}
	fmt.Printf("Matches for item %d:\n", id)
	a.printMatches(matches)
}

func (a *application) printMatches(matches []types.Match) {
	for i, m := range matches {
		rec, err := a.store.GetMediaByID(m.CandidateID)
		path := "?"
		if err == nil && rec != nil {
			path = rec.Path
		}
		if m.Source == types.MatchByTags {
			fmt.Printf("%d. [%d] %s\n   Similarity: %d%% (%s, shared tags)\n",
				i+1, m.CandidateID, path, m.Similarity, m.Tier)
		} else {
			fmt.Printf("%d. [%d] %s\n   Similarity: %d%% (%s, distance %d)\n",
				i+1, m.CandidateID, path, m.Similarity, m.Tier, m.Distance)
		}
	}
}

func (a *application) handleGroups(args map[string]string) {
	threshold := utils.IntArg(args, "threshold", a.cfg.Similarity.VerySimilarThreshold)
	minSize := utils.IntArg(args, "min-size", a.cfg.Similarity.MinGroupSize)

	groups, err := a.newEngine().FindAllDuplicateGroups(threshold, minSize)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("duplicate clustering failed")
	}

	if len(groups) == 0 {
		fmt.Println("No duplicate groups found.")
		return
	}
	fmt.Printf("Found %d duplicate groups (threshold %d%%):\n", len(groups), threshold)
	for i, g := range groups {
		fmt.Printf("\nGroup %d (avg similarity %d%%):\n", i+1, g.AverageSimilarity)
		for _, id := range g.IDs {
			rec, err := a.store.GetMediaByID(id)
			if err == nil && rec != nil {
				fmt.Printf("  [%d] %s\n", id, rec.Path)
			} else {
				fmt.Printf("  [%d]\n", id)
			}
		}
	}
}

func (a *application) handleExact() {
	groups, err := a.newEngine().FindExactDuplicates()
	if err != nil {
		a.logger.Fatal().Err(err).Msg("exact duplicate search failed")
	}

	if len(groups) == 0 {
		fmt.Println("No exact duplicates found.")
		return
	}
	for i, g := range groups {
		fmt.Printf("Group %d (%d copies, hash %.12s...):\n", i+1, len(g.Items), g.ContentHash)
		for _, item := range g.Items {
			fmt.Printf("  [%d] %s (%d bytes)\n", item.ID, item.Path, item.Size)
		}
	}
}

func (a *application) handleMoreLikeThis(args map[string]string) {
	id, ok := utils.Int64Arg(args, "id")
	if !ok {
		fmt.Println("Error: Missing media id (use --id=ID)")
		os.Exit(1)
	}
	limit := utils.IntArg(args, "limit", a.cfg.Similarity.MoreLikeThisLimit)

	matches, err := a.newEngine().GetMoreLikeThis(id, limit)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("recommendation lookup failed")
	}

	if len(matches) == 0 {
		fmt.Println("No recommendations found.")
		return
	}
	fmt.Printf("More like item %d:\n", id)
	a.printMatches(matches)
}

func (a *application) handleStats() {
	engine := a.newEngine()
	pipeline := backfill.NewPipeline(a.store, a.newSampler(), a.logger)

	coverage, err := pipeline.Stats()
	if err != nil {
		a.logger.Fatal().Err(err).Msg("cannot read coverage stats")
	}
	fmt.Printf("Library: %d items, %d fingerprinted (%.1f%%)\n",
		coverage.Total, coverage.Fingerprinted, coverage.Percent)

	dupes, err := engine.GetDuplicateStats()
	if err != nil {
		a.logger.Fatal().Err(err).Msg("cannot read duplicate stats")
	}
	fmt.Printf("Exact duplicates: %d groups, %d items, %d bytes reclaimable\n",
		dupes.Groups, dupes.Items, dupes.ReclaimableBytes)
}

func (a *application) handleTag(args map[string]string) {
	id, ok := utils.Int64Arg(args, "id")
	if !ok {
		fmt.Println("Error: Missing media id (use --id=ID)")
		os.Exit(1)
	}
	name := args["name"]
	if name == "" {
		fmt.Println("Error: Missing tag name (use --name=TAG)")
		os.Exit(1)
	}

	tagID, err := a.store.EnsureTag(name)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("cannot create tag")
	}
	if err := a.store.TagMedia(id, tagID); err != nil {
		a.logger.Fatal().Err(err).Msg("cannot tag item")
	}
	fmt.Printf("Tagged item %d with %q.\n", id, name)
}

func (a *application) handleExclude(args map[string]string) {
	id, ok := utils.Int64Arg(args, "id")
	if !ok {
		fmt.Println("Error: Missing media id (use --id=ID)")
		os.Exit(1)
	}
	_, undo := args["undo"]

	if err := a.store.SetExcluded(id, !undo); err != nil {
		a.logger.Fatal().Err(err).Int64("id", id).Msg("cannot update exclusion flag")
	}
	if undo {
		fmt.Printf("Item %d is usable again.\n", id)
	} else {
		fmt.Printf("Item %d excluded from similarity scans.\n", id)
	}
}
