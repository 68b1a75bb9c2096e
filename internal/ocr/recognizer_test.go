package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error

	gotStdin []byte
	gotName  string
	gotArgs  []string
}

func (s *stubRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	s.gotStdin = stdin
	s.gotName = name
	s.gotArgs = args
	return s.stdout, s.stderr, s.err
}

func TestTesseractRecognize(t *testing.T) {
	r := &stubRunner{stdout: []byte("R0001\n123456789012")}
	tess := NewTesseract(TesseractConfig{})
	tess.runner = r

	text, err := tess.Recognize(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "R0001\n123456789012", text)
	assert.Equal(t, "tesseract", r.gotName)
	assert.Equal(t, []string{"-", "stdout", "-l", "chi_tra+eng"}, r.gotArgs)
	assert.Equal(t, []byte("png-bytes"), r.gotStdin)
}

func TestTesseractRecognizeTessdataDir(t *testing.T) {
	r := &stubRunner{}
	tess := NewTesseract(TesseractConfig{Binary: "/opt/bin/tesseract", Lang: "eng", TessdataDir: "/opt/tessdata"})
	tess.runner = r

	_, err := tess.Recognize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/bin/tesseract", r.gotName)
	assert.Equal(t, []string{"-", "stdout", "-l", "eng", "--tessdata-dir", "/opt/tessdata"}, r.gotArgs)
}

func TestTesseractRecognizeError(t *testing.T) {
	r := &stubRunner{err: errors.New("exit status 1"), stderr: []byte("could not initialize")}
	tess := NewTesseract(TesseractConfig{})
	tess.runner = r

	_, err := tess.Recognize(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not initialize")
}
