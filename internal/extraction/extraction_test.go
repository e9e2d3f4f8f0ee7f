package extraction

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annafiu/twabillsplitter/internal/metrics"
	"github.com/annafiu/twabillsplitter/internal/normalize"
	"github.com/annafiu/twabillsplitter/internal/retry"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

const receiptJSON = `{
  "merchantName": "Sate Khas Senayan",
  "date": "12 Jan 2025",
  "items": [
    {"name": "Sate Ayam", "price": 10000, "quantity": 2},
    {"name": "Es Teh", "price": 5000, "quantity": 1}
  ],
  "subtotal": 15000,
  "totalDiscount": 3000,
  "deliveryFee": 5000,
  "serviceFee": 1000,
  "tax": 1500
}`

type fakeModel struct {
	mu      sync.Mutex
	calls   int
	answers []fakeAnswer
	block   chan struct{}
}

type fakeAnswer struct {
	text string
	err  error
}

func (f *fakeModel) GenerateReceipt(ctx context.Context, image []byte, mimeType string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.answers) {
		i = len(f.answers) - 1
	}
	return f.answers[i].text, f.answers[i].err
}

func (f *fakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() Config {
	return Config{
		MaxUploadBytes: 1024,
		Timeout:        5 * time.Second,
		Retry: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Multiplier:  2,
		},
	}
}

func newTestService(model Model) *Service {
	return NewService(model, testConfig(), nil, metrics.NewRegistry())
}

func TestExtract_Success(t *testing.T) {
	model := &fakeModel{answers: []fakeAnswer{{text: "```json\n" + receiptJSON + "\n```"}}}
	svc := newTestService(model)

	receipt, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "Sate Khas Senayan", receipt.MerchantName)
	assert.Equal(t, "12 Jan 2025", receipt.Date)
	require.Len(t, receipt.Items, 2)
	assert.Equal(t, 10000.0, receipt.Items[0].Price)
	assert.Equal(t, 2, receipt.Items[0].Quantity)
	assert.NotEmpty(t, receipt.Items[0].ID)
	assert.NotEqual(t, receipt.Items[0].ID, receipt.Items[1].ID)
	assert.Equal(t, 15000.0, receipt.Subtotal)
	assert.Equal(t, 3000.0, receipt.TotalDiscount)
	assert.Equal(t, 1, model.Calls())
}

func TestExtract_InvalidInputNeverCallsModel(t *testing.T) {
	tests := []struct {
		name     string
		image    []byte
		mimeType string
		want     error
	}{
		{name: "empty", image: nil, mimeType: "image/png", want: ErrEmptyImage},
		{name: "too large", image: make([]byte, 2048), mimeType: "image/png", want: ErrImageTooLarge},
		{name: "unsupported type", image: []byte("GIF89a......"), mimeType: "image/gif", want: ErrUnsupportedType},
		{name: "content mismatch", image: []byte("hello, this is text"), mimeType: "image/png", want: ErrUnreadableImage},
		{name: "unsniffable without type", image: []byte("hello, this is text"), mimeType: "", want: ErrUnreadableImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{answers: []fakeAnswer{{text: receiptJSON}}}
			svc := newTestService(model)

			_, err := svc.Extract(context.Background(), tt.image, tt.mimeType)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindInput, KindOf(err))
			assert.Zero(t, model.Calls())
		})
	}
}

func TestValidate_SniffsMissingType(t *testing.T) {
	svc := newTestService(&fakeModel{})

	got, err := svc.Validate(pngImage, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	got, err = svc.Validate([]byte("%PDF-1.7\n..."), "application/pdf; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", got)

	got, err = svc.Validate([]byte("\xFF\xD8\xFF\xE0rest"), "image/jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", got)

	// HEIC cannot be sniffed, the declared type is trusted.
	got, err = svc.Validate([]byte("....ftypheic"), "image/heic")
	require.NoError(t, err)
	assert.Equal(t, "image/heic", got)
}

func TestExtract_RetriesTransientErrors(t *testing.T) {
	model := &fakeModel{answers: []fakeAnswer{
		{err: &StatusError{StatusCode: http.StatusServiceUnavailable}},
		{err: &StatusError{StatusCode: http.StatusTooManyRequests}},
		{text: receiptJSON},
	}}
	svc := newTestService(model)

	receipt, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Sate Khas Senayan", receipt.MerchantName)
	assert.Equal(t, 3, model.Calls())
}

func TestExtract_ExhaustedIsUnavailable(t *testing.T) {
	model := &fakeModel{answers: []fakeAnswer{{err: &StatusError{StatusCode: http.StatusServiceUnavailable}}}}
	svc := newTestService(model)

	_, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.Error(t, err)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.True(t, retry.IsExhausted(err))
	assert.Equal(t, 3, model.Calls())
	assert.Contains(t, UserMessage(err), "sibuk")
}

func TestExtract_NonRetryableFailsFast(t *testing.T) {
	model := &fakeModel{answers: []fakeAnswer{{err: &StatusError{StatusCode: http.StatusBadRequest}}}}
	svc := newTestService(model)

	_, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, 1, model.Calls())
}

func TestExtract_MalformedResponse(t *testing.T) {
	model := &fakeModel{answers: []fakeAnswer{{text: "Maaf, saya tidak bisa membaca struk ini."}}}
	svc := newTestService(model)

	_, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.ErrorIs(t, err, ErrNoJSON)
	assert.Equal(t, 1, model.Calls())
}

func TestExtract_AppliesScaleHeuristics(t *testing.T) {
	model := &fakeModel{answers: []fakeAnswer{{text: `{
		"merchantName": "Warung",
		"items": [{"name": "Nasi", "price": 12, "quantity": 1}, {"name": "Teh", "price": 8, "quantity": 1}],
		"subtotal": 20000, "tax": 0.1
	}`}}}
	svc := newTestService(model)

	receipt, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 12000.0, receipt.Items[0].Price)
	assert.Equal(t, 8000.0, receipt.Items[1].Price)
	assert.InDelta(t, 2000.0, receipt.Tax, 0.01)
}

func TestExtract_UsesThresholdSource(t *testing.T) {
	model := &fakeModel{answers: []fakeAnswer{{text: `{
		"items": [{"name": "Nasi", "price": 12, "quantity": 1}],
		"subtotal": 12000
	}`}}}
	thresholds := normalize.DefaultThresholds()
	thresholds.ScaleFactor = 0
	thresholds.SmallAmountCeiling = 0
	svc := NewService(model, testConfig(), StaticThresholds(thresholds), metrics.NewRegistry())

	receipt, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 12.0, receipt.Items[0].Price)
}

func TestExtract_CollapsesIdenticalUploads(t *testing.T) {
	model := &fakeModel{
		answers: []fakeAnswer{{text: receiptJSON}},
		block:   make(chan struct{}),
	}
	svc := newTestService(model)

	const callers = 5
	var wg sync.WaitGroup
	var failures atomic.Int32
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Extract(context.Background(), pngImage, "image/png"); err != nil {
				failures.Add(1)
			}
		}()
	}

	// Let every caller join the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(model.block)
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 1, model.Calls())
}

func TestExtract_CallerCancellation(t *testing.T) {
	model := &fakeModel{
		answers: []fakeAnswer{{text: receiptJSON}},
		block:   make(chan struct{}),
	}
	defer close(model.block)
	svc := newTestService(model)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Extract(ctx, pngImage, "image/png")
	require.Error(t, err)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("receipt"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest([]byte("receipt")))
	assert.NotEqual(t, a, Digest([]byte("receipt2")))
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(&Error{Kind: KindInput, Err: ErrEmptyImage}), "tidak dapat dibaca")
	assert.Contains(t, UserMessage(&Error{Kind: KindMalformed, Err: ErrNoJSON}), "manual")
	assert.NotEmpty(t, UserMessage(errors.New("boom")))
}
