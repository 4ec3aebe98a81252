package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/media"

	"gocv.io/x/gocv"
)

// DefaultInputSize matches the 227x227 input of SqueezeNet style models.
const DefaultInputSize = 227

// matFrame is implemented by frames that carry an OpenCV matrix.
type matFrame interface {
	Mat() gocv.Mat
}

// DNNExtractor uses the activations of an OpenCV DNN network as the feature
// vector for a frame.
type DNNExtractor struct {
	net         gocv.Net
	modelPath   string
	configPath  string
	outputLayer string
	inputSize   int
	logger      *logger.Logger
	mu          sync.Mutex
}

// NewDNNExtractor loads the network named in the configuration.
func NewDNNExtractor(config *config.Config, logger *logger.Logger) (*DNNExtractor, error) {
	e := &DNNExtractor{
		modelPath:   config.ModelPath,
		configPath:  config.ModelConfigPath,
		outputLayer: config.ModelOutputLayer,
		inputSize:   config.ONNXInputSize,
		logger:      logger,
	}
	if e.inputSize <= 0 {
		e.inputSize = DefaultInputSize
	}

	if err := e.initializeNet(); err != nil {
		return nil, err
	}
	return e, nil
}

// initializeNet reads the network from the model (and optional config) file.
func (e *DNNExtractor) initializeNet() error {
	if _, err := os.Stat(e.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", e.modelPath)
	}

	if e.configPath != "" {
		if _, err := os.Stat(e.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", e.configPath)
		}
	}

	net := gocv.ReadNet(e.modelPath, e.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	e.net = net
	e.logger.Info("Feature network %s initialized", e.modelPath)
	return nil
}

// Extract runs the network forward and flattens the output layer.
func (e *DNNExtractor) Extract(frame media.Frame) ([]float32, error) {
	mat, release, err := toMat(frame)
	if err != nil {
		return nil, err
	}
	defer release()

	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(e.inputSize, e.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.net.SetInput(blob, "")
	output := e.net.Forward(e.outputLayer)
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("network produced no output")
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	features := make([]float32, len(data))
	copy(features, data)
	return features, nil
}

func (e *DNNExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}

// toMat borrows the Mat of OpenCV frames and converts anything else. The
// returned func frees only what toMat allocated.
func toMat(frame media.Frame) (gocv.Mat, func(), error) {
	if mf, ok := frame.(matFrame); ok {
		return mf.Mat(), func() {}, nil
	}

	img, err := frame.Image()
	if err != nil {
		return gocv.Mat{}, nil, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return mat, func() { mat.Close() }, nil
}
