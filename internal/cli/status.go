package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"gatekeep/internal/config"
	"gatekeep/internal/formatting"
	"gatekeep/internal/session"
	"gatekeep/internal/store"
)

// IDTokenClaims are the identity claims shown by `gatekeep status`.
type IDTokenClaims struct {
	Subject   string
	Email     string
	Name      string
	Issuer    string
	ExpiresAt time.Time
}

// ParseIDTokenClaims decodes the claims of a stored ID token for display.
// The signature is not checked; tokens are verified when they are received.
func ParseIDTokenClaims(raw string) (IDTokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return IDTokenClaims{}, fmt.Errorf("failed to decode ID token: %w", err)
	}

	var out IDTokenClaims
	out.Subject, _ = claims.GetSubject()
	out.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	out.Email, _ = claims["email"].(string)
	out.Name, _ = claims["name"].(string)
	return out, nil
}

// StatusView is everything `gatekeep status` renders.
type StatusView struct {
	Status  session.Status
	Backend config.StorageBackend
	Domain  string
	Now     time.Time
}

// RenderStatus writes a table describing the session to w.
func RenderStatus(w io.Writer, v StatusView) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendRow(table.Row{text.FgHiCyan.Sprint("Provider"), v.Domain})
	t.AppendRow(table.Row{text.FgHiCyan.Sprint("Status"), formatState(v.Status.State)})
	if !v.Status.ExpiresAt.IsZero() {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint("Expires"), formatExpiry(v.Status.ExpiresAt, v.Now)})
	}

	if v.Status.IDToken != "" {
		if claims, err := ParseIDTokenClaims(v.Status.IDToken); err == nil {
			if claims.Name != "" {
				t.AppendRow(table.Row{text.FgHiCyan.Sprint("Name"), claims.Name})
			}
			if claims.Email != "" {
				t.AppendRow(table.Row{text.FgHiCyan.Sprint("Email"), claims.Email})
			}
			if claims.Subject != "" {
				t.AppendRow(table.Row{text.FgHiCyan.Sprint("Subject"), claims.Subject})
			}
		}
	}

	t.AppendRow(table.Row{text.FgHiCyan.Sprint("Storage"), string(v.Backend)})
	t.Render()
}

// StatusReport is the machine-readable form of `gatekeep status`.
type StatusReport struct {
	State         string     `json:"state" yaml:"state"`
	Authenticated bool       `json:"authenticated" yaml:"authenticated"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	Provider      string     `json:"provider" yaml:"provider"`
	Storage       string     `json:"storage" yaml:"storage"`
	Subject       string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Email         string     `json:"email,omitempty" yaml:"email,omitempty"`
	Name          string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// Report converts v to a StatusReport. Tokens are never included.
func (v StatusView) Report() StatusReport {
	r := StatusReport{
		State:         v.Status.State.String(),
		Authenticated: v.Status.State == session.StateAuthenticated,
		Provider:      v.Domain,
		Storage:       string(v.Backend),
	}
	if !v.Status.ExpiresAt.IsZero() {
		expiresAt := v.Status.ExpiresAt.UTC()
		r.ExpiresAt = &expiresAt
	}
	if v.Status.IDToken != "" {
		if claims, err := ParseIDTokenClaims(v.Status.IDToken); err == nil {
			r.Subject = claims.Subject
			r.Email = claims.Email
			r.Name = claims.Name
		}
	}
	return r
}

// ShowStatus evaluates the stored session and writes it to the runtime's
// output in format. It never redirects.
func (r *Runtime) ShowStatus(ctx context.Context, format formatting.OutputFormat) error {
	status, err := r.NewManager().Evaluate(ctx)
	if err != nil {
		return err
	}
	view := StatusView{
		Status:  status,
		Backend: r.Config.Storage.Backend,
		Domain:  r.Config.Provider.Domain,
		Now:     time.Now(),
	}
	return formatting.Write(r.out, format, view.Report(), func(w io.Writer) {
		RenderStatus(w, view)
	})
}

// WatchStatus writes the status, then again every time another process
// changes the credentials file, until ctx is done.
func (r *Runtime) WatchStatus(ctx context.Context, format formatting.OutputFormat) error {
	fb, ok := r.Backend.(*store.FileBackend)
	if !ok {
		return fmt.Errorf("--watch requires the file storage backend, configured backend is %q", r.Config.Storage.Backend)
	}

	render := func() {
		if err := r.ShowStatus(ctx, format); err != nil {
			_, _ = fmt.Fprintf(r.out, "%s %v\n", text.FgRed.Sprint("✗"), err)
		}
	}

	render()
	if err := fb.Watch(ctx, render); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func formatState(s session.State) string {
	switch s {
	case session.StateAuthenticated:
		return text.FgGreen.Sprint("Authenticated")
	case session.StateExpired:
		return text.FgYellow.Sprint("Expired")
	case session.StateAuthenticating:
		return text.FgYellow.Sprint("Authenticating")
	case session.StateUnauthenticated:
		return text.FgYellow.Sprint("Not authenticated")
	default:
		return text.FgHiBlack.Sprint("Unknown")
	}
}

func formatExpiry(expiresAt, now time.Time) string {
	if !now.Before(expiresAt) {
		return text.FgYellow.Sprintf("expired %s ago", formatDuration(now.Sub(expiresAt)))
	}
	return fmt.Sprintf("in %s (%s)", formatDuration(expiresAt.Sub(now)), expiresAt.Local().Format(time.RFC1123))
}

// formatDuration renders d as a short human-readable string.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	}
}
