package inference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/reversi/executor/convert"
	"github.com/brensch/reversi/game"
	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	InputSize  = convert.FloatSize
	PolicySize = game.Cells
	ValueSize  = 1
)

const (
	DefaultBatchSize    = 128
	DefaultBatchTimeout = 1 * time.Millisecond
)

// ErrEvaluator wraps every failure coming out of the network evaluator.
var ErrEvaluator = errors.New("evaluator failure")

var errClosed = errors.New("onnx client closed")

type OnnxClientConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	// DisableCUDA skips the CUDA execution provider even when it is available.
	DisableCUDA bool
}

// RuntimeStats summarises the batches a client has run so far.
type RuntimeStats struct {
	TotalBatches  int64
	TotalItems    int64
	TotalRunNanos int64
	LastBatchSize int64
	QueueLen      int
	AvgBatchSize  float64
	AvgRunMs      float64
}

type inferenceRequest struct {
	input    []float32
	respChan chan inferenceResponse
}

type inferenceResponse struct {
	policy []float32
	value  float32
	err    error
}

// OnnxClient implements the inference engine using ONNX Runtime with batching
type OnnxClient struct {
	session      *ort.DynamicAdvancedSession
	requestsChan chan inferenceRequest
	done         chan struct{}
	stopped      chan struct{}
	closeOnce    sync.Once
	cfg          OnnxClientConfig

	totalBatches  atomic.Int64
	totalItems    atomic.Int64
	totalRunNanos atomic.Int64
	lastBatchSize atomic.Int64
}

var ortInitOnce sync.Once
var ortInitErr error

func defaultConfig() OnnxClientConfig {
	return OnnxClientConfig{BatchSize: DefaultBatchSize, BatchTimeout: DefaultBatchTimeout}
}

func NewOnnxClient(modelPath string) (*OnnxClient, error) {
	return NewOnnxClientWithConfig(modelPath, defaultConfig())
}

func NewOnnxClientWithConfig(modelPath string, cfg OnnxClientConfig) (*OnnxClient, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrEvaluator, modelPath, err)
	}
	return newClient(cfg, func(inputs, outputs []string, options *ort.SessionOptions) (*ort.DynamicAdvancedSession, error) {
		return ort.NewDynamicAdvancedSession(modelPath, inputs, outputs, options)
	})
}

// NewOnnxClientFromBytes loads a serialized model already held in memory.
func NewOnnxClientFromBytes(data []byte) (*OnnxClient, error) {
	return NewOnnxClientFromBytesWithConfig(data, defaultConfig())
}

func NewOnnxClientFromBytesWithConfig(data []byte, cfg OnnxClientConfig) (*OnnxClient, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty model data", ErrEvaluator)
	}
	return newClient(cfg, func(inputs, outputs []string, options *ort.SessionOptions) (*ort.DynamicAdvancedSession, error) {
		return ort.NewDynamicAdvancedSessionWithONNXData(data, inputs, outputs, options)
	})
}

type sessionFactory func(inputs, outputs []string, options *ort.SessionOptions) (*ort.DynamicAdvancedSession, error)

func newClient(cfg OnnxClientConfig, open sessionFactory) (*OnnxClient, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	if err := initRuntime(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: session options: %v", ErrEvaluator, err)
	}
	defer options.Destroy()

	inputs := []string{"input"}
	outputs := []string{"policy", "value"}

	// Set intra-op threads to 1 to avoid contention since we have many workers
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	if !cfg.DisableCUDA {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err == nil {
			defer cudaOptions.Destroy()
			if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
				log.Debug().Err(err).Msg("cuda provider unavailable, using cpu")
			} else {
				log.Info().Msg("cuda provider enabled")
			}
		} else {
			log.Debug().Err(err).Msg("failed to create cuda options")
		}
	}

	session, err := open(inputs, outputs, options)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrEvaluator, err)
	}

	client := &OnnxClient{
		session:      session,
		cfg:          cfg,
		requestsChan: make(chan inferenceRequest, cfg.BatchSize*2),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	go client.batchLoop()

	return client, nil
}

// initRuntime points onnxruntime_go at the shared library and initialises the
// process-global environment once.
func initRuntime() error {
	if runtime.GOOS == "linux" {
		ensureLinuxLibraryPath()
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else if p := findSharedLibrary(); p != "" {
			ort.SetSharedLibraryPath(p)
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return fmt.Errorf("%w: init onnxruntime: %v", ErrEvaluator, ortInitErr)
	}
	return nil
}

// findSharedLibrary searches the working directory and its parents.
func findSharedLibrary() string {
	candidates := []string{
		"libonnxruntime.so",
		"libonnxruntime.so.1",
		"libonnxruntime.so.1.23.2",
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for up := 0; up < 6; up++ {
		for _, name := range candidates {
			abs := filepath.Join(dir, name)
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func ensureLinuxLibraryPath() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// CUDA shared libraries installed via pip inside the project's .venv.
	candidateDirs := []string{cwd}

	patterns := []string{
		filepath.Join(cwd, ".venv", "lib", "python*", "site-packages", "nvidia", "*", "lib"),
		filepath.Join(cwd, ".venv", "lib", "python*", "site-packages", "onnxruntime", "capi"),
	}
	for _, pat := range patterns {
		matches, _ := filepath.Glob(pat)
		candidateDirs = append(candidateDirs, matches...)
	}

	existing := os.Getenv("LD_LIBRARY_PATH")
	existingSet := map[string]bool{}
	for _, p := range strings.Split(existing, ":") {
		if p != "" {
			existingSet[p] = true
		}
	}

	toAdd := make([]string, 0, len(candidateDirs))
	for _, d := range candidateDirs {
		if existingSet[d] {
			continue
		}
		if st, err := os.Stat(d); err == nil && st.IsDir() {
			toAdd = append(toAdd, d)
		}
	}
	if len(toAdd) == 0 {
		return
	}

	newVal := strings.Join(toAdd, ":")
	if existing != "" {
		newVal = newVal + ":" + existing
	}
	_ = os.Setenv("LD_LIBRARY_PATH", newVal)
}

// Close stops the batching goroutine and releases the session.
func (c *OnnxClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.stopped
		err = c.session.Destroy()
	})
	return err
}

// Predict evaluates one board. The policy has 64 entries indexed like
// game.Position.Index; the value is from the mover's perspective.
func (c *OnnxClient) Predict(b game.Board) ([]float32, float32, error) {
	ptr := convert.BoardToFloat32(b)
	input := make([]float32, InputSize)
	copy(input, *ptr)
	convert.PutFloatBuffer(ptr)

	respChan := make(chan inferenceResponse, 1)
	select {
	case c.requestsChan <- inferenceRequest{input: input, respChan: respChan}:
	case <-c.done:
		return nil, 0, fmt.Errorf("%w: %v", ErrEvaluator, errClosed)
	}

	select {
	case resp := <-respChan:
		return resp.policy, resp.value, resp.err
	case <-c.done:
		return nil, 0, fmt.Errorf("%w: %v", ErrEvaluator, errClosed)
	}
}

func (c *OnnxClient) Stats() RuntimeStats {
	batches := c.totalBatches.Load()
	items := c.totalItems.Load()
	runNanos := c.totalRunNanos.Load()
	st := RuntimeStats{
		TotalBatches:  batches,
		TotalItems:    items,
		TotalRunNanos: runNanos,
		LastBatchSize: c.lastBatchSize.Load(),
		QueueLen:      len(c.requestsChan),
	}
	if batches > 0 {
		st.AvgBatchSize = float64(items) / float64(batches)
		st.AvgRunMs = (float64(runNanos) / 1e6) / float64(batches)
	}
	return st
}

func (c *OnnxClient) batchLoop() {
	batchInput := make([]float32, 0, c.cfg.BatchSize*InputSize)
	requests := make([]inferenceRequest, 0, c.cfg.BatchSize)

	ticker := time.NewTicker(c.cfg.BatchTimeout)
	defer ticker.Stop()
	defer close(c.stopped)

	for {
		select {
		case <-c.done:
			c.failBatch(requests, errClosed)
			return
		case req := <-c.requestsChan:
			requests = append(requests, req)
			batchInput = append(batchInput, req.input...)

			if len(requests) >= c.cfg.BatchSize {
				c.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		case <-ticker.C:
			if len(requests) > 0 {
				c.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		}
	}
}

func (c *OnnxClient) runBatch(requests []inferenceRequest, batchInput []float32) {
	n := int64(len(requests))
	start := time.Now()

	inputShape := ort.NewShape(n, convert.Channels, convert.Height, convert.Width)
	inputTensor, err := ort.NewTensor(inputShape, batchInput)
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, PolicySize))
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, ValueSize))
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer valueTensor.Destroy()

	if err := c.session.Run([]ort.Value{inputTensor}, []ort.Value{policyTensor, valueTensor}); err != nil {
		c.failBatch(requests, err)
		return
	}

	policyData := policyTensor.GetData()
	valueData := valueTensor.GetData()
	if len(policyData) != len(requests)*PolicySize || len(valueData) != len(requests)*ValueSize {
		c.failBatch(requests, fmt.Errorf("output shape mismatch: policy=%d value=%d batch=%d", len(policyData), len(valueData), n))
		return
	}

	c.totalBatches.Add(1)
	c.totalItems.Add(n)
	c.totalRunNanos.Add(time.Since(start).Nanoseconds())
	c.lastBatchSize.Store(n)

	for i, req := range requests {
		policy := make([]float32, PolicySize)
		copy(policy, policyData[i*PolicySize:(i+1)*PolicySize])
		req.respChan <- inferenceResponse{policy: policy, value: valueData[i*ValueSize]}
	}
}

func (c *OnnxClient) failBatch(requests []inferenceRequest, err error) {
	for _, req := range requests {
		req.respChan <- inferenceResponse{err: fmt.Errorf("%w: %v", ErrEvaluator, err)}
	}
}
