package ocr

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/docextract/internal/config"
)

// scriptedRunner records invocations and replays canned stdout per call.
type scriptedRunner struct {
	calls   [][]string
	stdouts []string
	err     error
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.err != nil {
		return nil, []byte("boom"), r.err
	}
	return []byte(r.stdouts[len(r.calls)-1]), nil, nil
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t200\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t12\t40\t14\t91.5\tFACTURE\n"

func TestRecognizeRunsTextThenTSVPass(t *testing.T) {
	runner := &scriptedRunner{stdouts: []string{"FACTURE\n", sampleTSV}}
	engine := NewTesseractEngineWithRunner(config.OCRConfig{Language: "fra", OEM: 1}, runner)

	rec, err := engine.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)), "fra", 6)
	require.NoError(t, err)
	assert.Equal(t, "FACTURE\n", rec.Text)
	require.Len(t, rec.Tokens, 2)
	assert.Equal(t, -1.0, rec.Tokens[0].Confidence)
	assert.Equal(t, "FACTURE", rec.Tokens[1].Text)
	assert.Equal(t, image.Rect(10, 12, 50, 26), rec.Tokens[1].Box)

	require.Len(t, runner.calls, 2)
	first := runner.calls[0]
	assert.Equal(t, "tesseract", first[0]) // defaulted binary name
	assert.True(t, strings.HasSuffix(first[1], "page.png"))
	assert.Equal(t, []string{"stdout", "-l", "fra", "--psm", "6", "--oem", "1"}, first[2:])

	wantSecond := append(append([]string{}, first[1:]...), "tsv")
	assert.Equal(t, wantSecond, runner.calls[1][1:])
}

func TestRecognizeWrapsRunnerFailure(t *testing.T) {
	cmdErr := errors.New("exit status 1")
	runner := &scriptedRunner{err: cmdErr}
	engine := NewTesseractEngineWithRunner(config.OCRConfig{}, runner)

	_, err := engine.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)), "eng", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, cmdErr)
	assert.Contains(t, err.Error(), "boom")
	require.Len(t, runner.calls, 1)
	assert.NotContains(t, runner.calls[0], "--psm") // psm 0 keeps tesseract's default
}
