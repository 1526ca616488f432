// Package sitetest provides project root fixtures for tests.
package sitetest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

// IndexHTML is an index.html that satisfies every smoke and audit check.
const IndexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Amor Fati</title>
  <link rel="manifest" href="manifest.json">
</head>
<body>
  <nav>
    <button class="nav-tab" data-tab="welcome">Welcome</button>
    <button class="nav-tab" data-tab="assessment">Assessment</button>
    <button class="nav-tab" data-tab="history">History</button>
    <button class="nav-tab" data-tab="settings">Settings</button>
  </nav>
  <section id="welcome"></section>
  <section id="assessment">
    <form id="assessmentForm"></form>
  </section>
  <section id="history"></section>
  <section id="settings"></section>
  <script src="app.js"></script>
  <script>
    if ('serviceWorker' in navigator) {
      navigator.serviceWorker.register('service-worker.js');
    }
  </script>
</body>
</html>
`

// ManifestJSON is a manifest.json that satisfies every smoke and audit check.
const ManifestJSON = `{
  "name": "Amor Fati",
  "short_name": "AmorFati",
  "start_url": "./index.html",
  "display": "standalone",
  "background_color": "#ffffff",
  "theme_color": "#222222",
  "icons": [
    {"src": "icons/icon-192.png", "sizes": "192x192", "type": "image/png"},
    {"src": "icons/icon-512.png", "sizes": "512x512", "type": "image/png"}
  ]
}
`

// ServiceWorkerJS is a service worker precaching every fixture file.
const ServiceWorkerJS = `const CACHE_NAME = "amor-fati-cache-v2";
const PRECACHE_ASSETS = [
  "./",
  "index.html",
  "manifest.json",
  // icons
  "icons/icon-192.png",
  "icons/icon-512.png",
  "offline.html",
];

self.addEventListener("install", (event) => {
  event.waitUntil(caches.open(CACHE_NAME).then((cache) => cache.addAll(PRECACHE_ASSETS)));
});
`

// OfflineHTML is a minimal offline fallback page.
const OfflineHTML = `<!DOCTYPE html><html><body><p>Offline</p></body></html>
`

// PNG is the signature and IHDR chunk of a 1x1 image. It carries no EXIF.
var PNG = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

// ValidPWA returns a project root that passes the smoke test and the
// strict audit.
func ValidPWA() fstest.MapFS {
	return fstest.MapFS{
		"index.html":         {Data: []byte(IndexHTML)},
		"manifest.json":      {Data: []byte(ManifestJSON)},
		"service-worker.js":  {Data: []byte(ServiceWorkerJS)},
		"offline.html":       {Data: []byte(OfflineHTML)},
		"app.js":             {Data: []byte("function switchTab(tab) {}\n")},
		"icons/icon-192.png": {Data: PNG},
		"icons/icon-512.png": {Data: PNG},
	}
}

// WithFile returns a copy of fsys with name set to content.
func WithFile(fsys fstest.MapFS, name, content string) fstest.MapFS {
	out := clone(fsys)
	out[name] = &fstest.MapFile{Data: []byte(content)}
	return out
}

// Without returns a copy of fsys without the named files.
func Without(fsys fstest.MapFS, names ...string) fstest.MapFS {
	out := clone(fsys)
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// WithNavTabs returns a copy of fsys whose index.html has exactly n
// nav-tab buttons.
func WithNavTabs(fsys fstest.MapFS, n int) fstest.MapFS {
	var buttons strings.Builder
	tabs := []string{"welcome", "assessment", "history", "settings"}
	for i := 0; i < n; i++ {
		tab := tabs[i%len(tabs)]
		buttons.WriteString(`    <button class="nav-tab" data-tab="` + tab + `">` + tab + "</button>\n")
	}

	start := strings.Index(IndexHTML, "  <nav>\n") + len("  <nav>\n")
	end := strings.Index(IndexHTML, "  </nav>")
	index := IndexHTML[:start] + buttons.String() + IndexHTML[end:]
	return WithFile(fsys, "index.html", index)
}

func clone(fsys fstest.MapFS) fstest.MapFS {
	out := make(fstest.MapFS, len(fsys))
	for k, v := range fsys {
		f := *v
		out[k] = &f
	}
	return out
}

// WriteDir writes fsys to a new temporary directory and returns its path.
func WriteDir(t *testing.T, fsys fstest.MapFS) string {
	t.Helper()

	dir := t.TempDir()
	for name, f := range fsys {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatalf("failed to create fixture dir: %v", err)
		}
		if err := os.WriteFile(path, f.Data, 0600); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}
	return dir
}
