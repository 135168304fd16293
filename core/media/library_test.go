package media

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func newLibrary(t *testing.T, defaultCover string) *Library {
	t.Helper()
	l, err := NewLibrary(defaultCover)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestArtwork_SidecarWhenNoEmbeddedPicture(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "song.mp3")
	writeFile(t, track, []byte("not really an mp3"))
	writeFile(t, filepath.Join(dir, "song.png"), pngHeader)

	l := newLibrary(t, "")
	art, err := l.Artwork(track)
	require.NoError(t, err)
	assert.Equal(t, "image/png", art.MIMEType)
	assert.Equal(t, pngHeader, art.Data)
}

func TestArtwork_SidecarPreferenceOrder(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "song.flac")
	writeFile(t, track, []byte("fLaC garbage"))
	writeFile(t, filepath.Join(dir, "song.png"), pngHeader)
	writeFile(t, filepath.Join(dir, "song.jpg"), []byte("\xff\xd8\xff jpeg"))

	l := newLibrary(t, "")
	art, err := l.Artwork(track)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", art.MIMEType)
}

func TestArtwork_DefaultCover(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "default.png")
	writeFile(t, cover, pngHeader)

	l := newLibrary(t, cover)
	art, err := l.Artwork(filepath.Join(dir, "missing.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", art.MIMEType)

	art, err = l.Artwork("")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, art.Data)
}

func TestArtwork_DefaultCoverNotImage(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.txt")
	writeFile(t, cover, []byte("plain text, definitely not a picture"))

	l := newLibrary(t, cover)
	_, err := l.Artwork("")
	require.ErrorIs(t, err, ErrNotImage)
}

func TestArtwork_DefaultCoverMissing(t *testing.T) {
	l := newLibrary(t, filepath.Join(t.TempDir(), "nope.jpg"))
	_, err := l.Artwork("")
	require.ErrorIs(t, err, ErrNotFound)

	l2 := newLibrary(t, "")
	_, err = l2.Artwork("")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubtitlesAndVideo(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "set.m4a")
	writeFile(t, track, []byte("audio"))
	writeFile(t, filepath.Join(dir, "set.ass"), []byte("[Script Info]"))
	writeFile(t, filepath.Join(dir, "set.webm"), []byte("webm"))

	l := newLibrary(t, "")
	subs, err := l.Subtitles(track)
	require.NoError(t, err)
	assert.Equal(t, "[Script Info]", string(subs))

	video, err := l.Video(track)
	require.NoError(t, err)
	defer video.Close()
	assert.Equal(t, "video/webm", video.MIMEType)
	data, err := io.ReadAll(video)
	require.NoError(t, err)
	assert.Equal(t, "webm", string(data))

	_, err = l.Subtitles(filepath.Join(dir, "other.mp3"))
	require.ErrorIs(t, err, ErrNotFound)
}

func (l *Library) cacheStats() (entries, bytes int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len(), l.cacheBytes
}

func TestVideoIsNotCached(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "set.mp3")
	writeFile(t, track, []byte("audio"))
	writeFile(t, filepath.Join(dir, "set.mp4"), make([]byte, 1<<20))

	l := newLibrary(t, "")
	video, err := l.Video(track)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", video.MIMEType)
	require.NoError(t, video.Close())

	entries, bytes := l.cacheStats()
	assert.Zero(t, entries)
	assert.Zero(t, bytes)

	_, err = l.Video(filepath.Join(dir, "missing.mp3"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheBoundedByBytes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, filepath.Join(dir, name+".mp3"), []byte("audio"))
		writeFile(t, filepath.Join(dir, name+".ass"), []byte("1234"))
	}
	writeFile(t, filepath.Join(dir, "big.mp3"), []byte("audio"))
	writeFile(t, filepath.Join(dir, "big.ass"), []byte("too large"))

	l := newLibrary(t, "")
	l.maxBytes = 10
	l.maxFile = 6

	for _, name := range []string{"a", "b", "c"} {
		_, err := l.Subtitles(filepath.Join(dir, name+".mp3"))
		require.NoError(t, err)
	}

	entries, bytes := l.cacheStats()
	assert.Equal(t, 2, entries)
	assert.Equal(t, 8, bytes)

	// 最早的 a.ass 被淘汰
	_, ok := l.cached(filepath.Join(dir, "a.ass"))
	assert.False(t, ok)
	_, ok = l.cached(filepath.Join(dir, "c.ass"))
	assert.True(t, ok)

	got, err := l.Subtitles(filepath.Join(dir, "big.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "too large", string(got))
	_, ok = l.cached(filepath.Join(dir, "big.ass"))
	assert.False(t, ok)
}

func TestAssociated_RequiresTrack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ghost.ass"), []byte("subs"))

	l := newLibrary(t, "")
	_, err := l.Associated(filepath.Join(dir, "ghost.mp3"), "ass")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheEvictedOnChange(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "song.mp3")
	subs := filepath.Join(dir, "song.ass")
	writeFile(t, track, []byte("audio"))
	writeFile(t, subs, []byte("v1"))

	l := newLibrary(t, "")
	got, err := l.Subtitles(track)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	writeFile(t, subs, []byte("v2"))
	require.Eventually(t, func() bool {
		got, err := l.Subtitles(track)
		return err == nil && string(got) == "v2"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(subs))
	require.Eventually(t, func() bool {
		_, err := l.Subtitles(track)
		return err == ErrNotFound
	}, 2*time.Second, 20*time.Millisecond)
}
