package features

import (
	"fmt"
	"sync"

	"teachablecam/internal/media"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig describes an image embedding model. The input is a 1x3xSxS
// float tensor, the output a flat vector of OutputSize values.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	InputSize   int
	OutputSize  int
}

// ONNXExtractor runs an embedding model through ONNX Runtime and uses its
// output as the feature vector.
type ONNXExtractor struct {
	cfg          ONNXConfig
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

func NewONNXExtractor(cfg ONNXConfig) (*ONNXExtractor, error) {
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize))
	outputShape := ort.NewShape(1, int64(cfg.OutputSize))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXExtractor{
		cfg:          cfg,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (e *ONNXExtractor) Extract(frame media.Frame) ([]float32, error) {
	img, err := frameImage(frame)
	if err != nil {
		return nil, err
	}
	input := toCHW(img, e.cfg.InputSize, 0.5, 0.5)

	// the tensors are shared, so runs are serialized
	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputTensor.GetData(), input)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	output := e.outputTensor.GetData()
	out := make([]float32, len(output))
	copy(out, output)
	return out, nil
}

func (e *ONNXExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
	if e.session != nil {
		e.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
