package progress

import (
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// BarSet renders one mpb progress bar per file, fed by a Sink closure.
// Grounded on the teacher's internal/progress/uploadui.go UploadUI/FileBar.
type BarSet struct {
	progress *mpb.Progress
	mu       sync.Mutex
	bars     map[string]*mpb.Bar
}

// NewBarSet creates a bar set rendering to w (typically os.Stderr, leaving
// stdout free for log lines the way the teacher's CLI mode does).
func NewBarSet(w io.Writer) *BarSet {
	return &BarSet{
		progress: mpb.New(
			mpb.WithOutput(w),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		),
		bars: make(map[string]*mpb.Bar),
	}
}

// Sink returns the progress.Sink this bar set exposes to the coordinator.
func (b *BarSet) Sink() Sink {
	return func(fileName string, done, total int64) {
		b.mu.Lock()
		bar, ok := b.bars[fileName]
		if !ok {
			bar = b.progress.AddBar(total,
				mpb.PrependDecorators(decor.Name(fileName, decor.WC{W: 20, C: decor.DindentRight})),
				mpb.AppendDecorators(decor.CountersKibiByte("% .2f / % .2f")),
			)
			b.bars[fileName] = bar
		}
		b.mu.Unlock()

		bar.SetCurrent(done)
		if done >= total {
			bar.SetTotal(total, true)
		}
	}
}

// Wait blocks until every bar has completed.
func (b *BarSet) Wait() {
	b.progress.Wait()
}
