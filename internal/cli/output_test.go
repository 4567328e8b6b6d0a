package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kassa/internal/checkout"
	"github.com/roach88/kassa/internal/daybook"
	"github.com/roach88/kassa/internal/receipt"
	"github.com/roach88/kassa/internal/shop"
	"github.com/roach88/kassa/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(syncResult{Queued: 3, Delivered: 3})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"queued": 3.0, "delivered": 3.0, "failed": 0.0}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeDayClosed, "day already closed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "day already closed", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success(syncResult{Queued: 2, Delivered: 1, Failed: 1}))
	assert.Equal(t, "queued 2, delivered 1, failed 1\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error(ErrCodeInvalidInput, "invalid product", map[string]string{"field": "price"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E003]: invalid product")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: diag,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("cart: %d lines", 2)

			assert.Empty(t, out.String(), "diagnostics never go to stdout")
			if tt.wantLog {
				assert.Equal(t, "cart: 2 lines\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail("close day failed", fmt.Errorf("%w: 2026-10-15", daybook.ErrDayClosed))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, daybook.ErrDayClosed)
	assert.Contains(t, buf.String(), "Error [E005]: close day failed")

	buf.Reset()
	exitErr := NewExitError(ExitFailure, "2 records not delivered")
	assert.Same(t, exitErr, formatter.Fail("sync failed", exitErr))
	assert.Contains(t, buf.String(), "2 records not delivered")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		exit int
	}{
		{"not onboarded", shop.ErrNotOnboarded, ErrCodeNotOnboarded, ExitCommandError},
		{"no active shop", checkout.ErrNoActiveShop, ErrCodeNotOnboarded, ExitCommandError},
		{"empty cart", checkout.ErrEmptyCart, ErrCodeInvalidInput, ExitFailure},
		{"day closed", daybook.ErrDayClosed, ErrCodeDayClosed, ExitFailure},
		{"bad receipt", fmt.Errorf("%w: trailing data", receipt.ErrInvalid), ErrCodeInvalidReceipt, ExitFailure},
		{"duplicate", &store.Error{Code: store.ErrCodeDuplicateKey, Op: "insert"}, ErrCodeInvalidInput, ExitFailure},
		{"unavailable", &store.Error{Code: store.ErrCodeUnavailable, Op: "open"}, ErrCodeStore, ExitCommandError},
		{"config", fmt.Errorf("%w: bad", errConfig), ErrCodeConfig, ExitCommandError},
		{"write", fmt.Errorf("%w: disk full", errWrite), ErrCodeWriteFailed, ExitCommandError},
		{"missing file", fmt.Errorf("read: %w", os.ErrNotExist), ErrCodeGeneric, ExitCommandError},
		{"usage", usageError("bad quantity"), ErrCodeInvalidInput, ExitFailure},
		{"unknown", errors.New("boom"), ErrCodeGeneric, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := classify(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.exit, exit)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))
}
