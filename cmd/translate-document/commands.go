package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoaportal/backend/internal/models"
	"github.com/hoaportal/backend/internal/poller"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <document-id>",
		Short: "Request a translation of a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runRequest,
	}
	cmd.Flags().StringP("lang", "l", "", "target language (fr, en, ar)")
	cmd.Flags().StringP("user", "u", "", "requesting user ID")
	cmd.Flags().BoolP("wait", "w", false, "poll until the translation finishes")
	cmd.Flags().Duration("interval", poller.DefaultInterval, "poll interval with --wait")
	cmd.Flags().Duration("max-wait", 15*time.Minute, "give up waiting after this long")
	_ = cmd.MarkFlagRequired("lang")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show the translation status of a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	cmd.Flags().StringP("lang", "l", "", "target language (fr, en, ar)")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func parseLangFlag(cmd *cobra.Command) (models.Language, error) {
	raw, _ := cmd.Flags().GetString("lang")
	lang, ok := models.ParseLanguage(raw)
	if !ok {
		return "", fmt.Errorf("unsupported language %q (use fr, en or ar)", raw)
	}
	return lang, nil
}

func runRequest(cmd *cobra.Command, args []string) error {
	lang, err := parseLangFlag(cmd)
	if err != nil {
		return err
	}
	userID, _ := cmd.Flags().GetString("user")
	wait, _ := cmd.Flags().GetBool("wait")
	interval, _ := cmd.Flags().GetDuration("interval")
	maxWait, _ := cmd.Flags().GetDuration("max-wait")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	documentID := args[0]
	resp, err := requestTranslation(ctx, documentID, lang, userID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (status=%s", resp.Message, resp.Status)
	if resp.JobID != "" {
		fmt.Fprintf(out, ", job=%s", resp.JobID)
	}
	fmt.Fprintln(out, ")")

	if resp.TranslatedDocumentID != "" {
		fmt.Fprintf(out, "Translated document: %s\n", resp.TranslatedDocumentID)
		return nil
	}
	if !wait {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	p := &poller.Poller{
		Interval: interval,
		OnUpdate: func(s *models.TranslationStatus) {
			fmt.Fprintf(out, "  %s  %s\n", time.Now().Format("15:04:05"), s.Status)
		},
	}
	final, err := p.Wait(ctx, poller.HTTPStatus(httpClient(), serverURL, documentID, lang))
	if err != nil {
		return err
	}
	return printFinal(cmd, final)
}

func runStatus(cmd *cobra.Command, args []string) error {
	lang, err := parseLangFlag(cmd)
	if err != nil {
		return err
	}

	status, err := poller.HTTPStatus(httpClient(), serverURL, args[0], lang)(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !status.Requested {
		fmt.Fprintf(out, "No %s translation has been requested for %s\n", lang.DisplayName(), args[0])
		return nil
	}
	fmt.Fprintf(out, "Status: %s\n", status.Status)
	if status.JobID != "" {
		fmt.Fprintf(out, "Job: %s\n", status.JobID)
	}
	if status.TranslatedDocumentID != "" {
		fmt.Fprintf(out, "Translated document: %s\n", status.TranslatedDocumentID)
	}
	if status.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", status.ErrorMessage)
	}
	return nil
}

func printFinal(cmd *cobra.Command, status *models.TranslationStatus) error {
	if status.TranslatedDocumentID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Translated document: %s\n", status.TranslatedDocumentID)
		return nil
	}
	if status.Status == models.TranslationStatusFailed {
		return errors.New("translation failed: " + status.ErrorMessage)
	}
	return nil
}

func requestTranslation(ctx context.Context, documentID string, lang models.Language, userID string) (*models.RequestTranslationResponse, error) {
	body, err := json.Marshal(models.RequestTranslationRequest{
		TargetLanguage: string(lang),
		UserID:         userID,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(serverURL, "/") + "/api/documents/" + url.PathEscape(documentID) + "/translations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var out models.RequestTranslationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}
