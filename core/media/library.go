package media

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"DeckCast/logger"

	"github.com/dhowden/tag"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrNotFound 找不到对应的媒体文件
	ErrNotFound = errors.New("media not found")
	// ErrNotImage 默认封面不是图片
	ErrNotImage = errors.New("default cover is not an image")
)

// File 读到的媒体内容
type File struct {
	MIMEType string
	Data     []byte
}

type sidecar struct {
	ext  string
	mime string
}

var (
	artworkSidecars = []sidecar{{"jpg", "image/jpeg"}, {"jpeg", "image/jpeg"}, {"png", "image/png"}}
	videoSidecars   = []sidecar{{"mp4", "video/mp4"}, {"webm", "video/webm"}}
)

const pictureSuffix = "\x00picture"

const (
	// DefaultCacheBytes 缓存总字节上限
	DefaultCacheBytes = 64 << 20
	// DefaultMaxCachedFile 超过这个大小的文件不进缓存
	DefaultMaxCachedFile = 4 << 20
	maxCacheEntries      = 1024
)

// Stream 不进缓存、直接从磁盘读取的文件（视频）
// 调用方负责 Close
type Stream struct {
	*os.File
	MIMEType string
	ModTime  time.Time
}

// Library 根据 deck 加载的音频路径查找封面、字幕、视频
// 封面和字幕缓存在按字节数限制的 LRU 里，fsnotify 监听所在目录，文件变动时失效
type Library struct {
	defaultCover string

	mu         sync.Mutex
	cache      *lru.Cache[string, File]
	cacheBytes int
	maxBytes   int
	maxFile    int
	watched    map[string]struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLibrary 创建媒体库并启动目录监听
func NewLibrary(defaultCover string) (*Library, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	l := &Library{
		defaultCover: defaultCover,
		maxBytes:     DefaultCacheBytes,
		maxFile:      DefaultMaxCachedFile,
		watched:      make(map[string]struct{}),
		watcher:      watcher,
		done:         make(chan struct{}),
	}
	// 回调只会在持有 l.mu 时触发（Add / Remove / RemoveOldest）
	l.cache, err = lru.NewWithEvict[string, File](maxCacheEntries, func(_ string, f File) {
		l.cacheBytes -= len(f.Data)
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("create media cache: %w", err)
	}
	go l.watch()
	return l, nil
}

// Close 停止监听
func (l *Library) Close() error {
	err := l.watcher.Close()
	<-l.done
	return err
}

// Artwork 依次尝试：内嵌封面、同名 jpg/jpeg/png、默认封面
func (l *Library) Artwork(trackPath string) (File, error) {
	if trackExists(trackPath) {
		pic, err := l.embeddedPicture(trackPath)
		if err == nil {
			return pic, nil
		}
		logger.Debug("no embedded artwork", logger.String("file", trackPath), logger.ErrorField(err))

		for _, sc := range artworkSidecars {
			data, err := l.read(sidecarPath(trackPath, sc.ext))
			if err == nil {
				return File{MIMEType: sc.mime, Data: data}, nil
			}
		}
	} else if trackPath != "" {
		logger.Warn("deck is playing a nonexistent file", logger.String("file", trackPath))
	}

	return l.defaultArtwork()
}

// Subtitles 同名 .ass 字幕
func (l *Library) Subtitles(trackPath string) ([]byte, error) {
	return l.Associated(trackPath, "ass")
}

// Video 同名 mp4/webm，文件可能很大，直接打开不缓存
func (l *Library) Video(trackPath string) (*Stream, error) {
	if !trackExists(trackPath) {
		return nil, ErrNotFound
	}
	for _, sc := range videoSidecars {
		f, err := os.Open(sidecarPath(trackPath, sc.ext))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			f.Close()
			continue
		}
		return &Stream{File: f, MIMEType: sc.mime, ModTime: info.ModTime()}, nil
	}
	return nil, ErrNotFound
}

// Associated 读取与音频同名、扩展名为 ext 的文件
func (l *Library) Associated(trackPath, ext string) ([]byte, error) {
	if !trackExists(trackPath) {
		return nil, ErrNotFound
	}
	return l.read(sidecarPath(trackPath, ext))
}

func (l *Library) defaultArtwork() (File, error) {
	if l.defaultCover == "" {
		return File{}, ErrNotFound
	}
	data, err := l.read(l.defaultCover)
	if err != nil {
		logger.Error("could not read default artwork", logger.String("file", l.defaultCover), logger.ErrorField(err))
		return File{}, err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		logger.Error("default artwork is not an image", logger.String("file", l.defaultCover), logger.String("mime", mime))
		return File{}, ErrNotImage
	}
	return File{MIMEType: mime, Data: data}, nil
}

// embeddedPicture 用 dhowden/tag 读取 FLAC/MP3/M4A/OGG 内嵌图片
func (l *Library) embeddedPicture(trackPath string) (File, error) {
	key := filepath.Clean(trackPath) + pictureSuffix
	if f, ok := l.cached(key); ok {
		return f, nil
	}

	cacheable := l.watchDir(filepath.Dir(trackPath))
	fh, err := os.Open(trackPath)
	if err != nil {
		return File{}, err
	}
	defer fh.Close()

	meta, err := tag.ReadFrom(fh)
	if err != nil {
		return File{}, fmt.Errorf("read tags: %w", err)
	}
	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return File{}, ErrNotFound
	}

	mime := pic.MIMEType
	if mime == "" {
		mime = http.DetectContentType(pic.Data)
	}
	f := File{MIMEType: mime, Data: pic.Data}
	if cacheable {
		l.store(key, f)
	}
	return f, nil
}

func (l *Library) read(path string) ([]byte, error) {
	key := filepath.Clean(path)
	if f, ok := l.cached(key); ok {
		return f.Data, nil
	}

	// 先监听再读，读之后发生的修改一定能让缓存失效
	cacheable := l.watchDir(filepath.Dir(key))
	data, err := os.ReadFile(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if cacheable {
		l.store(key, File{Data: data})
	}
	return data, nil
}

// watchDir 确保目录已被监听；监听失败的目录里的文件不缓存
func (l *Library) watchDir(dir string) bool {
	l.mu.Lock()
	_, watching := l.watched[dir]
	l.mu.Unlock()
	if watching {
		return true
	}

	if err := l.watcher.Add(dir); err != nil {
		logger.Warn("could not watch media directory", logger.String("dir", dir), logger.ErrorField(err))
		return false
	}
	l.mu.Lock()
	l.watched[dir] = struct{}{}
	l.mu.Unlock()
	return true
}

func (l *Library) cached(key string) (File, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Get(key)
}

// store 放入缓存，超出字节上限时淘汰最久未用的条目
func (l *Library) store(key string, f File) {
	size := len(f.Data)
	if size > l.maxFile || size > l.maxBytes {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if old, ok := l.cache.Peek(key); ok {
		l.cacheBytes -= len(old.Data)
	}
	l.cache.Add(key, f)
	l.cacheBytes += size
	for l.cacheBytes > l.maxBytes {
		if _, _, ok := l.cache.RemoveOldest(); !ok {
			break
		}
	}
}

func (l *Library) evict(path string) {
	key := filepath.Clean(path)
	l.mu.Lock()
	l.cache.Remove(key)
	l.cache.Remove(key + pictureSuffix)
	l.mu.Unlock()
}

func (l *Library) watch() {
	defer close(l.done)
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				l.evict(ev.Name)
				logger.Debug("media cache evicted", logger.String("file", ev.Name), logger.String("op", ev.Op.String()))
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("media watcher error", logger.ErrorField(err))
		}
	}
}

func trackExists(trackPath string) bool {
	if trackPath == "" {
		return false
	}
	info, err := os.Stat(trackPath)
	return err == nil && !info.IsDir()
}

func sidecarPath(trackPath, ext string) string {
	return strings.TrimSuffix(trackPath, filepath.Ext(trackPath)) + "." + ext
}
