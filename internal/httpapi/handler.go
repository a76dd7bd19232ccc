package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/edge-response-mcp/internal/analysis"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
	"github.com/ironsheep/edge-response-mcp/internal/logging"
	"github.com/ironsheep/edge-response-mcp/internal/session"
)

// StatusClientClosedRequest reports a request whose context ended before the
// analysis finished. net/http has no constant for it.
const StatusClientClosedRequest = 499

// MaxUploadBytes bounds the body of POST /image/upload.
const MaxUploadBytes = 32 << 20

type ErrorResponse struct {
	Error   analysis.ErrorKind `json:"error"`
	Message string             `json:"message,omitempty"`
}

type SynthesizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Radius int `json:"radius"`
}

type LoadRequest struct {
	Path   string `json:"path" binding:"required"`
	Reload bool   `json:"reload,omitempty"`
}

type ResponseRequest struct {
	Margin         *int `json:"margin,omitempty"`
	AngularSamples *int `json:"angular_samples,omitempty"`
}

// RegionRequest carries an optional ROI; all four fields or none.
type RegionRequest struct {
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

type ImageResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Source string `json:"source"`
	Status string `json:"status"`
}

type ResultResponse struct {
	*analysis.Result
	Status string `json:"status"`
}

type NoiseResponse struct {
	NoiseLevel float64 `json:"noise_level"`
	Status     string  `json:"status"`
}

type CNRResponse struct {
	session.CNRReading
	Status string `json:"status"`
}

type handler struct {
	sess    *session.Session
	log     *logrus.Logger
	timeout time.Duration
	version string
}

// NewHandler builds the gin engine serving sess. A nil logger discards
// output.
func NewHandler(sess *session.Session, logger *logrus.Logger, version string) http.Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &handler{
		sess:    sess,
		log:     logger,
		timeout: sess.Config().Server.RequestTimeout,
		version: version,
	}

	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(logger),
	)

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/status", h.status)

	img := r.Group("/image")
	img.POST("/generate", h.generate)
	img.POST("/synthesize", h.synthesize)
	img.POST("/load", h.load)
	img.POST("/upload", requestSizeLimiter(MaxUploadBytes), h.upload)
	img.POST("/enhance", h.enhance)
	r.GET("/image.png", h.imagePNG)
	r.GET("/edges.png", h.edgesPNG)

	r.POST("/analysis/response", h.calculateResponse)
	r.GET("/analysis/response", h.lastResult)

	r.GET("/metrics/noise", h.noise)
	r.POST("/metrics/cnr", h.cnr)

	return r
}

func (h *handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h *handler) imageResponse(b *imaging.Buffer) ImageResponse {
	snap := h.sess.Snapshot()
	return ImageResponse{Width: b.Width, Height: b.Height, Source: snap.Source, Status: snap.Status}
}

func (h *handler) generate(c *gin.Context) {
	b, err := h.sess.GenerateTestImage()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.imageResponse(b))
}

func (h *handler) synthesize(c *gin.Context) {
	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	b, err := h.sess.Synthesize(req.Width, req.Height, req.Radius)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.imageResponse(b))
}

func (h *handler) load(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	b, err := h.sess.Load(req.Path, req.Reload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.imageResponse(b))
}

// upload decodes the raw request body. An undecodable body is rejected as
// invalid input and leaves the session untouched.
func (h *handler) upload(c *gin.Context) {
	b, err := imaging.Decode(c.Request.Body)
	if err != nil {
		h.respondKind(c, analysis.KindInvalidInput, err)
		return
	}
	source := c.Query("name")
	if source == "" {
		source = "upload"
	}
	if err := h.sess.Ingest(b, source); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.imageResponse(b))
}

func (h *handler) enhance(c *gin.Context) {
	b, err := h.sess.EnhanceEdges()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.imageResponse(b))
}

func (h *handler) imagePNG(c *gin.Context) {
	opts := imaging.RenderOptions{Colormap: c.DefaultQuery("colormap", "gray"), Scale: 1.0}
	if s := c.Query("scale"); s != "" {
		scale, err := strconv.ParseFloat(s, 64)
		if err != nil {
			h.respondError(c, invalid(err))
			return
		}
		opts.Scale = scale
	}
	if g := c.Query("grid"); g != "" {
		spacing, err := strconv.Atoi(g)
		if err != nil {
			h.respondError(c, invalid(err))
			return
		}
		opts.Grid = spacing
		opts.GridLabels = c.Query("labels") == "true"
	}
	if c.Query("overlay") == "true" {
		if r := h.sess.Result(); r != nil {
			opts.Overlay = &imaging.CircleOverlay{
				CenterX: r.Circle.Center.X,
				CenterY: r.Circle.Center.Y,
				Radius:  r.Circle.Radius,
			}
		}
	}

	data, err := imaging.EncodePNG(h.sess.Image(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (h *handler) edgesPNG(c *gin.Context) {
	cfg := h.sess.Config()
	m, err := imaging.Canny(h.sess.Image(), cfg.Edge.LowThreshold, cfg.Edge.HighThreshold)
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := imaging.EncodePNG(&imaging.Buffer{Width: m.Width, Height: m.Height, Pix: m.ToGray().Pix}, imaging.RenderOptions{})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("X-Edge-Count", strconv.Itoa(m.Count()))
	c.Data(http.StatusOK, "image/png", data)
}

func (h *handler) calculateResponse(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var req ResponseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	p := h.sess.Config().ProfileParams()
	if req.Margin != nil {
		p.Margin = *req.Margin
	}
	if req.AngularSamples != nil {
		p.AngularSamples = *req.AngularSamples
	}

	startTime := time.Now()
	r, err := h.sess.AnalyzeWith(ctx, p)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"radius":             r.Circle.Radius,
		"profile_len":        len(r.Profile),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Response function calculated")

	c.JSON(http.StatusOK, ResultResponse{Result: r, Status: h.sess.Status()})
}

func (h *handler) lastResult(c *gin.Context) {
	r := h.sess.Result()
	if r == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":   "NotFound",
			"message": "no response function calculated",
		})
		return
	}
	c.JSON(http.StatusOK, ResultResponse{Result: r, Status: h.sess.Status()})
}

func (h *handler) noise(c *gin.Context) {
	v, err := h.sess.NoiseLevel()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NoiseResponse{NoiseLevel: v, Status: h.sess.Status()})
}

func (h *handler) cnr(c *gin.Context) {
	var req RegionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	roi, err := req.roi()
	if err != nil {
		h.respondError(c, err)
		return
	}
	v, region, err := h.sess.CNR(roi)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CNRResponse{CNRReading: session.NewCNRReading(v, region), Status: h.sess.Status()})
}

func (r RegionRequest) roi() (*imaging.ROI, error) {
	switch {
	case r.X == nil && r.Y == nil && r.Width == nil && r.Height == nil:
		return nil, nil
	case r.X == nil || r.Y == nil || r.Width == nil || r.Height == nil:
		return nil, fmt.Errorf("%w: x, y, width and height must be given together", analysis.ErrInvalidInput)
	}
	return &imaging.ROI{X: *r.X, Y: *r.Y, Width: *r.Width, Height: *r.Height}, nil
}

// Middleware and helper functions

// bindOptionalJSON binds a JSON body when one is present. An empty body
// leaves v unchanged.
func bindOptionalJSON(c *gin.Context, v interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return invalid(err)
	}
	return nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", analysis.ErrInvalidInput, err)
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}).Debug("Request handled")
	}
}

// StatusCode maps an error kind to the HTTP status reported for it.
func StatusCode(kind analysis.ErrorKind) int {
	switch kind {
	case analysis.KindNoImageLoaded:
		return http.StatusNotFound
	case analysis.KindNoCircleDetected:
		return http.StatusUnprocessableEntity
	case analysis.KindInvalidROI, analysis.KindInvalidInput:
		return http.StatusBadRequest
	case analysis.KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondError(c *gin.Context, err error) {
	h.respondKind(c, analysis.KindOf(err), err)
}

func (h *handler) respondKind(c *gin.Context, kind analysis.ErrorKind, err error) {
	code := StatusCode(kind)

	// Log the error with context
	h.log.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"kind":        kind,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Warn("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   kind,
		Message: err.Error(),
	})
}
