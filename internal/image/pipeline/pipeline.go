// Package pipeline validates tasks and runs them through the image engines on a bounded worker queue
package pipeline

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"time"

	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/image/codec"
	"github.com/DMarby/image-api/internal/image/geometry"
	"github.com/DMarby/image-api/internal/image/metadata"
	"github.com/DMarby/image-api/internal/image/savings"
	"github.com/DMarby/image-api/internal/image/watermark"
	"github.com/DMarby/image-api/internal/logger"
	"github.com/DMarby/image-api/internal/queue"
	"github.com/DMarby/image-api/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	queueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "image_api_processor_queue_size",
		Help: "Tasks waiting for or running on a worker",
	})
	processedTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_api_processor_tasks_total",
		Help: "Processed tasks by operation and outcome",
	}, []string{"operation", "result"})
	processingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_api_processor_duration_seconds",
		Help:    "Time spent processing a task on a worker",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
	}, []string{"operation"})
)

// Processor is an image processor running every task on a fixed pool of workers
type Processor struct {
	log    *logger.Logger
	tracer *tracing.Tracer
	codec  *codec.Codec
	queue  *queue.Queue
	cache  *image.Cache
}

type job struct {
	data []byte
	task image.Task
}

// New initializes a new processor instance. The cache is optional.
func New(ctx context.Context, log *logger.Logger, tracer *tracing.Tracer, workers int, c *codec.Codec, cache *image.Cache) *Processor {
	p := &Processor{
		log:    log,
		tracer: tracer,
		codec:  c,
		cache:  cache,
	}

	p.queue = queue.New(ctx, workers, p.taskProcessor)
	go p.queue.Run()
	log.Infof("starting image worker queue with %d workers", workers)

	return p
}

// ProcessImage validates the task and applies it to the upload
func (p *Processor) ProcessImage(ctx context.Context, data []byte, task image.Task) (result *image.Result, err error) {
	defer func() {
		processedTasks.WithLabelValues(task.Operation().String(), outcome(err)).Inc()
	}()

	if err := task.Validate(); err != nil {
		return nil, err
	}

	if p.cache == nil {
		return p.process(ctx, data, task)
	}

	key, err := image.CacheKey(data, task)
	if err != nil {
		return nil, image.Internal(err, "error building cache key")
	}

	cached, err := p.cache.Get(ctx, key, func(ctx context.Context, key string) ([]byte, error) {
		result, err := p.process(ctx, data, task)
		if err != nil {
			return nil, err
		}

		return result.Bytes()
	})
	if err != nil {
		var imageErr *image.Error
		if errors.As(err, &imageErr) {
			return nil, err
		}

		// The cache being unavailable shouldn't fail the request
		p.log.Warnf("error using result cache: %s", err)
		return p.process(ctx, data, task)
	}

	return image.ResultFromBytes(task, cached)
}

func (p *Processor) process(ctx context.Context, data []byte, task image.Task) (*image.Result, error) {
	queueSize.Inc()
	defer queueSize.Dec()

	v, err := p.queue.Process(ctx, &job{data: data, task: task})
	if err != nil {
		// Queue shutdown and cancellation come back unclassified
		var imageErr *image.Error
		if !errors.As(err, &imageErr) {
			return nil, image.Internal(err, "error processing image")
		}

		return nil, err
	}

	result, ok := v.(*image.Result)
	if !ok {
		return nil, image.Internal(fmt.Errorf("unexpected result %T", v), "error processing image")
	}

	return result, nil
}

func (p *Processor) taskProcessor(ctx context.Context, data interface{}) (interface{}, error) {
	j, ok := data.(*job)
	if !ok {
		return nil, fmt.Errorf("invalid data")
	}

	operation := j.task.Operation().String()
	ctx, span := p.tracer.Start(ctx, "pipeline."+operation)
	defer span.End()

	start := time.Now()
	defer func() {
		processingDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	result, err := p.run(ctx, j)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, image.KindOf(err).String())
		return nil, err
	}

	return result, nil
}

func (p *Processor) run(ctx context.Context, j *job) (*image.Result, error) {
	img, err := p.decode(ctx, j.data)
	if err != nil {
		return nil, err
	}

	switch task := j.task.(type) {
	case *image.ConvertTask:
		return p.encode(ctx, task, img.Pixels, task.Output)

	case *image.ResizeTask:
		resized, err := p.transform(ctx, "geometry.Resize", func() (goimage.Image, error) {
			return geometry.Resize(img.Pixels, task.Options)
		})
		if err != nil {
			return nil, err
		}
		return p.encode(ctx, task, resized, task.Output)

	case *image.CropTask:
		cropped, err := p.transform(ctx, "geometry.Crop", func() (goimage.Image, error) {
			return geometry.Crop(img.Pixels, task.Rectangle)
		})
		if err != nil {
			return nil, err
		}
		return p.encode(ctx, task, cropped, task.Output)

	case *image.WatermarkTask:
		watermarked, err := p.transform(ctx, "watermark.Apply", func() (goimage.Image, error) {
			return watermark.Apply(img.Pixels, task.Spec)
		})
		if err != nil {
			return nil, err
		}
		return p.encode(ctx, task, watermarked, task.Output)

	case *image.InfoTask:
		ctx, span := p.tracer.Start(ctx, "savings.Analyze")
		defer span.End()

		report, err := savings.Analyze(ctx, p.codec, img, task.Quality)
		if err != nil {
			return nil, err
		}
		return &image.Result{Operation: task.Operation(), Report: report}, nil

	case *image.MetadataTask:
		_, span := p.tracer.Start(ctx, "metadata.Extract")
		defer span.End()

		return &image.Result{Operation: task.Operation(), Report: metadata.Extract(img)}, nil
	}

	return nil, image.Internal(fmt.Errorf("unknown task %T", j.task), "error processing image")
}

func (p *Processor) decode(ctx context.Context, data []byte) (*image.Image, error) {
	_, span := p.tracer.Start(ctx, "codec.Decode")
	defer span.End()

	img, err := p.codec.Decode(data)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("image.format", img.Format),
		attribute.Int("image.width", img.Width()),
		attribute.Int("image.height", img.Height()),
	)

	return img, nil
}

func (p *Processor) transform(ctx context.Context, name string, f func() (goimage.Image, error)) (goimage.Image, error) {
	_, span := p.tracer.Start(ctx, name)
	defer span.End()

	return f()
}

func (p *Processor) encode(ctx context.Context, task image.Task, img goimage.Image, output image.Output) (*image.Result, error) {
	_, span := p.tracer.Start(ctx, "codec.Encode")
	defer span.End()

	span.SetAttributes(
		attribute.String("image.output_format", string(output.Format)),
		attribute.Int("image.quality", output.Quality),
	)

	data, err := p.codec.Encode(img, output.Format, output.Quality)
	if err != nil {
		return nil, err
	}

	return &image.Result{
		Operation: task.Operation(),
		Format:    output.Format,
		Data:      data,
	}, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}

	return image.KindOf(err).String()
}
