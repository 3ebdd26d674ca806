package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/oauth"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Cloud authentication",
	}

	cmd.AddCommand(newAuthStartCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the browser-based OAuth flow for the Cloud location",
		RunE:  runAuthStart,
	}
}

func runAuthStart(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	tokenStore := oauth.NewTokenStore(cc.Profile)

	creds, err := tokenStore.LoadCredentials()
	if err != nil {
		return err
	}

	if creds == nil {
		if cloudClientID == "" {
			return fmt.Errorf("%w: no OAuth client credentials configured for this build or profile", apperr.ErrOAuth)
		}

		creds = &model.OAuthClientCredentials{ClientID: cloudClientID, ClientSecret: cloudClientSecret}
	}

	flow := oauth.NewFlow(cc.Profile, cc.Logger)

	if _, err := flow.Start(cmd.Context(), *creds); err != nil {
		return err
	}

	fmt.Println("Authentication successful.")

	return nil
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the Cloud location is authenticated",
		RunE:  runAuthStatus,
	}
}

type authStatusResult struct {
	Authenticated bool   `json:"authenticated"`
	Provider      string `json:"provider"`
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	tokens, err := oauth.NewTokenStore(cc.Profile).LoadTokens()
	if err != nil {
		return err
	}

	result := authStatusResult{Authenticated: tokens != nil, Provider: model.LocationCloud.String()}

	return printResult(result, func() {
		if result.Authenticated {
			fmt.Println("Authenticated.")
		} else {
			fmt.Println("Not authenticated. Run 'foldsync auth start'.")
		}
	})
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Cloud tokens for this profile",
		RunE:  runAuthLogout,
	}
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := oauth.NewTokenStore(cc.Profile).DeleteTokens(); err != nil {
		return err
	}

	fmt.Println("Logged out.")

	return nil
}
