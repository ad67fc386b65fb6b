package frontend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"
)

// PreloadAhead is the number of upcoming levels whose images are prefetched.
const PreloadAhead = 3

// levelImages is an image pair as served by /api/levels.
type levelImages struct {
	ImageLeft  string `json:"imageLeft"`
	ImageRight string `json:"imageRight"`
}

func parseLevelImages(r io.Reader) ([]levelImages, error) {
	var resp struct {
		Levels []levelImages `json:"levels"`
	}
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode levels: %w", err)
	}
	return resp.Levels, nil
}

func fetchLevelImages() ([]levelImages, error) {
	resp, err := apiClient.Get(apiURL("/levels"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch levels: %s", resp.Status)
	}
	return parseLevelImages(resp.Body)
}

// upcomingImages lists the images of the levels following current, up to PreloadAhead of them.
func upcomingImages(levels []levelImages, current int) []string {
	var urls []string
	for i := current + 1; i <= current+PreloadAhead && i < len(levels); i++ {
		urls = append(urls, levels[i].ImageLeft, levels[i].ImageRight)
	}
	return urls
}

// prefetchLink asks the browser to fetch url in the background, with low priority.
func prefetchLink(url string) {
	if app.IsServer {
		return
	}
	doc := app.Window().Get("document")
	link := doc.Call("createElement", "link")
	link.Set("rel", "prefetch")
	link.Set("as", "image")
	link.Set("href", url)
	doc.Get("head").Call("appendChild", link)
}

// PreloadLevels prefetches the images of the levels after level. It does nothing until
// the level images are known, and each image is only prefetched once.
func (s *GlobalClientState) PreloadLevels(level int) {
	urls := upcomingImages(s.images, level)
	var count int
	for _, url := range urls {
		if s.prefetched[url] {
			continue
		}
		if s.prefetched == nil {
			s.prefetched = make(map[string]bool)
		}
		s.prefetched[url] = true
		s.prefetch(url)
		count++
	}
	if count > 0 {
		klog.V(1).Infof("Preloading %d images for the levels after %d", count, level+1)
	}
}

// LoadLevelImages fetches the image pairs of all levels once, in the background, and then
// preloads the levels after the current one.
func (s *GlobalClientState) LoadLevelImages(ctx app.Context) {
	if app.IsServer || s.images != nil {
		return
	}
	ctx.Async(func() {
		levels, err := fetchLevelImages()
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				klog.Warningf("Failed to load the level images, not preloading: %v", err)
				return
			}
			s.images = levels
			if s.Session != nil {
				s.PreloadLevels(s.Session.Level)
			}
		})
	})
}
