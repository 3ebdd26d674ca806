package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/provider"
	"github.com/foldkeep/foldsync/internal/syncengine"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run and inspect three-way sync cycles",
	}

	cmd.AddCommand(newSyncStartCmd())
	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncFilesCmd())
	cmd.AddCommand(newSyncResolveCmd())

	return cmd
}

func newEngine(cc *CLIContext, providers map[model.Location]provider.Provider) *syncengine.Engine {
	return &syncengine.Engine{
		Store:     cc.Store,
		Providers: providers,
		Bus:       syncengine.NewBus(),
		Logger:    cc.Logger,
		DataDir:   cc.Cfg.DataDir,
	}
}

func newSyncStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run one sync cycle for this profile",
		RunE:  runSyncStart,
	}
}

type syncStartResult struct {
	FilesSynced int              `json:"files_synced"`
	Conflicts   []model.Conflict `json:"conflicts"`
	Errors      []string         `json:"errors"`
}

func runSyncStart(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	profile, err := mustExistingProfile(ctx, cc.Store, cc.Profile)
	if err != nil {
		return err
	}

	providers, err := buildProviders(ctx, profile, cc.Logger)
	if err != nil {
		return err
	}

	engine := newEngine(cc, providers)

	detach := attachProgressPrinter(engine.Bus)
	result, err := engine.RunOnce(ctx, profile)
	detach()

	if err != nil {
		return err
	}

	if err := cc.Store.TouchLastSync(ctx, profile.ID, time.Now().UTC()); err != nil {
		cc.Logger.Warn("recording last sync time failed", "error", err)
	}

	out := syncStartResult{FilesSynced: result.FilesSynced, Conflicts: result.Conflicts, Errors: stringifyErrors(result.Errors)}

	return printResult(out, func() {
		fmt.Printf("synced %d file(s), %d conflict(s), %d error(s)\n", out.FilesSynced, len(out.Conflicts), len(out.Errors))
	})
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this profile's sync status",
		RunE:  runSyncStatus,
	}
}

type syncStatusResult struct {
	IsSyncing    bool    `json:"is_syncing"`
	LastSync     *string `json:"last_sync,omitempty"`
	FilesSynced  int     `json:"files_synced"`
	FilesPending int     `json:"files_pending"`
	Conflicts    int     `json:"conflicts"`
}

func runSyncStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	profile, err := mustExistingProfile(ctx, cc.Store, cc.Profile)
	if err != nil {
		return err
	}

	isSyncing := false

	lock, lockErr := syncengine.AcquireLock(cc.Cfg.DataDir, profile.ID)
	if lockErr != nil {
		isSyncing = true
	} else {
		lock.Release() //nolint:errcheck
	}

	baseline, err := cc.Store.LoadBaseline(ctx, profile.ID)
	if err != nil {
		return err
	}

	filesSynced, filesPending := 0, 0

	for _, fs := range baseline {
		switch fs.Status {
		case model.StatusSynced:
			filesSynced++
		case model.StatusConflict, model.StatusPending, model.StatusModified:
			filesPending++
		}
	}

	unresolved, err := cc.Store.ListUnresolvedConflicts(ctx, profile.ID)
	if err != nil {
		return err
	}

	result := syncStatusResult{
		IsSyncing: isSyncing, FilesSynced: filesSynced, FilesPending: filesPending, Conflicts: len(unresolved),
	}

	if profile.LastSyncAt != nil {
		formatted := profile.LastSyncAt.UTC().Format(time.RFC3339)
		result.LastSync = &formatted
	}

	return printResult(result, func() {
		lastSync := "-"
		if result.LastSync != nil {
			lastSync = *result.LastSync
		}

		fmt.Printf("is_syncing:    %v\n", result.IsSyncing)
		fmt.Printf("last_sync:     %s\n", lastSync)
		fmt.Printf("files_synced:  %d\n", result.FilesSynced)
		fmt.Printf("files_pending: %d\n", result.FilesPending)
		fmt.Printf("conflicts:     %d\n", result.Conflicts)
	})
}

func newSyncFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the 50 most recently modified local files",
		RunE:  runSyncFiles,
	}
}

const recentFilesLimit = 50

func runSyncFiles(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	profile, err := mustExistingProfile(ctx, cc.Store, cc.Profile)
	if err != nil {
		return err
	}

	files, err := cc.Store.ListRecentFiles(ctx, profile.ID, model.LocationLocal, recentFilesLimit)
	if err != nil {
		return err
	}

	return printResult(files, func() {
		for _, f := range files {
			fmt.Printf("%-10s %8s  %s\n", f.Status, formatSize(f.Size), f.Path)
		}
	})
}

func newSyncResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path> <keep_local|keep_cloud|keep_share|keep_both>",
		Short: "Resolve a pending conflict",
		Args:  cobra.ExactArgs(2),
		RunE:  runSyncResolve,
	}
}

func runSyncResolve(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	path, resolution := args[0], model.ConflictResolution(args[1])

	switch resolution {
	case model.ResolutionKeepLocal, model.ResolutionKeepCloud, model.ResolutionKeepShare, model.ResolutionKeepBoth:
	default:
		return fmt.Errorf("unknown resolution %q: must be one of keep_local, keep_cloud, keep_share, keep_both", resolution)
	}

	profile, err := mustExistingProfile(ctx, cc.Store, cc.Profile)
	if err != nil {
		return err
	}

	providers, err := buildProviders(ctx, profile, cc.Logger)
	if err != nil {
		return err
	}

	engine := newEngine(cc, providers)

	if err := engine.ResolveConflict(ctx, profile, path, resolution); err != nil {
		return err
	}

	fmt.Println("ok")

	return nil
}

func stringifyErrors(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}

	return out
}
