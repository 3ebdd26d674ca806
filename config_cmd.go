package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foldkeep/foldsync/internal/provider"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and change a profile's configured locations",
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigTestShareCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the profile's configured locations",
		RunE:  runConfigGet,
	}
}

type configGetResult struct {
	LocalPath     string `json:"local_path,omitempty"`
	CloudFolderID string `json:"cloud_folder_id,omitempty"`
	SharePath     string `json:"share_path,omitempty"`
}

func runConfigGet(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	profile, err := getOrCreateProfile(cmd.Context(), cc.Store, cc.Profile)
	if err != nil {
		return err
	}

	result := configGetResult{LocalPath: profile.LocalRoot, CloudFolderID: profile.CloudFolderID, SharePath: profile.SharePath}

	return printResult(result, func() {
		fmt.Printf("local_path:      %s\n", emptyAsDash(result.LocalPath))
		fmt.Printf("cloud_folder_id: %s\n", emptyAsDash(result.CloudFolderID))
		fmt.Printf("share_path:      %s\n", emptyAsDash(result.SharePath))
	})
}

func emptyAsDash(s string) string {
	if s == "" {
		return "(not set)"
	}

	return s
}

func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the profile's local path and, optionally, its Cloud/Share locations",
		RunE:  runConfigSet,
	}

	cmd.Flags().String("local-path", "", "local folder to sync (required)")
	cmd.Flags().String("cloud-folder-id", "", "Cloud folder ID to sync against")
	cmd.Flags().String("share-path", "", "mounted network share path to sync against")

	cmd.MarkFlagRequired("local-path") //nolint:errcheck

	return cmd
}

func runConfigSet(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	localPath, _ := cmd.Flags().GetString("local-path")
	cloudFolderID, _ := cmd.Flags().GetString("cloud-folder-id")
	sharePath, _ := cmd.Flags().GetString("share-path")

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("local path %q does not exist: %w", localPath, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("local path %q is not a directory", localPath)
	}

	profile, err := getOrCreateProfile(cmd.Context(), cc.Store, cc.Profile)
	if err != nil {
		return err
	}

	profile.LocalRoot = localPath

	if cmd.Flags().Changed("cloud-folder-id") {
		profile.CloudFolderID = cloudFolderID
	}

	if cmd.Flags().Changed("share-path") {
		profile.SharePath = sharePath
	}

	if err := cc.Store.UpdateProfile(cmd.Context(), profile); err != nil {
		return err
	}

	fmt.Println("ok")

	return nil
}

func newConfigTestShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-share <path>",
		Short: "Probe whether a network share path is reachable",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigTestShare,
	}
}

func runConfigTestShare(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	reachable := provider.NewShare(args[0], cc.Logger).TestConnection(cmd.Context())

	return printResult(reachable, func() {
		fmt.Println(reachable)
	})
}
