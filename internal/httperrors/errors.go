// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors classifies HTTP and transport failures from the Superset API
// into typed errors and renders user-friendly explanations for them.
package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	apperr "supersetctl/cli/internal/errors"
)

// FromTransport converts an error returned by http.Client.Do into a connection error.
// Context cancellation is passed through unchanged.
func FromTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Wrap(apperr.Connection, op+": "+describeTransport(err), err)
}

// FromStatus maps a non-success HTTP status to an error kind.
// body is the (possibly truncated) response body, included for diagnostics.
func FromStatus(op string, status int, body string) error {
	msg := fmt.Sprintf("%s: HTTP %d", op, status)
	if s := strings.TrimSpace(body); s != "" {
		if len(s) > 300 {
			s = s[:300] + "..."
		}
		msg += ": " + s
	}
	kind := apperr.Remote
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = apperr.Permission
	case status == http.StatusNotFound:
		kind = apperr.NotFound
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		// The proxy in front of Superset could not reach it.
		kind = apperr.Connection
	}
	return apperr.WithStatus(kind, status, msg)
}

func describeTransport(err error) string {
	switch {
	case isTimeoutError(err):
		return "timeout"
	case isDNSError(err):
		return "cannot resolve host"
	case isConnectionRefusedError(err):
		return "connection refused"
	case isSSLError(err):
		return "TLS handshake failed"
	default:
		return "network error"
	}
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

// Present shows a formatted explanation for err while performing the action
// described by context (e.g. "creating chart").
func Present(err error, context string) {
	if err == nil {
		return
	}
	var e *apperr.E
	if !errors.As(err, &e) {
		showGenericError(context, err.Error())
		return
	}
	switch {
	case e.Kind == apperr.Connection && isTimeoutError(err):
		showTimeoutError(context)
	case e.Kind == apperr.Connection && isDNSError(err):
		showDNSError(context, serverHost(err))
	case e.Kind == apperr.Connection && isConnectionRefusedError(err):
		showConnectionRefusedError(context, serverHost(err))
	case e.Kind == apperr.Connection && isSSLError(err):
		showSSLError(context)
	case e.Kind == apperr.Permission:
		showPermissionError(context, e.Status)
	case e.Kind == apperr.Remote && e.Status >= 500:
		showServerError(context)
	default:
		showGenericError(context, err.Error())
	}
}

func showTimeoutError(context string) {
	pterm.Printf("⏱️  Connection timeout while %s\n", context)
	pterm.Println()
	pterm.Println("Superset took too long to respond. This could mean:")
	pterm.Println("  • Slow network between you and the server")
	pterm.Println("  • The server is under heavy load")
	pterm.Println("  • A firewall is dropping the connection")
	pterm.Println()
}

func showDNSError(context, host string) {
	pterm.Printf("🌐 Cannot resolve %s while %s\n", host, context)
	pterm.Println()
	pterm.Println("Check that superset_url is spelled correctly and that DNS works from this machine.")
	pterm.Println()
}

func showConnectionRefusedError(context, host string) {
	pterm.Printf("🚫 Connection to %s refused while %s\n", host, context)
	pterm.Println()
	pterm.Println("Nothing is listening at the configured address. Check the port in superset_url")
	pterm.Println("and whether the Superset web server is running.")
	pterm.Println()
}

func showSSLError(context string) {
	pterm.Printf("🔒 Secure connection failed while %s\n", context)
	pterm.Println()
	pterm.Println("Cannot establish an HTTPS connection. Check the server certificate,")
	pterm.Println("proxy settings and the system clock.")
	pterm.Println()
}

func showPermissionError(context string, status int) {
	pterm.Printf("⛔ Permission denied while %s (HTTP %d)\n", context, status)
	pterm.Println()
	pterm.Println("The logged-in Superset user lacks the role needed for this operation.")
	pterm.Println("Run 'supersetctl login' again if the session may have expired.")
	pterm.Println()
}

func showServerError(context string) {
	pterm.Printf("⚠️  Server error while %s\n", context)
	pterm.Println()
	pterm.Println("Superset returned an internal error. Its logs usually name the cause.")
	pterm.Println()
}

func showGenericError(context string, errDetails string) {
	pterm.Printf("❌ Request failed while %s\n", context)
	pterm.Println()
	if errDetails != "" {
		shortErr := errDetails
		if len(shortErr) > 200 {
			shortErr = shortErr[:200] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", shortErr)
		pterm.Println()
	}
}

// serverHost names the host of the failed request, taken from the *url.Error that
// http.Client returns.
func serverHost(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return ExtractHostFromURL(uerr.URL)
	}
	return "server"
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
