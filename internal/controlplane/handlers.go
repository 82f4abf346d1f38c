package controlplane

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/egress"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/pipeline"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
	"github.com/idlab-discover/Multi-path-XR/internal/scheduler"
	"github.com/idlab-discover/Multi-path-XR/internal/supervisor"
	"github.com/idlab-discover/Multi-path-XR/pkg/logging"
)

// defaultBroadcastAddr is used for Flute egress when no XRCORE_BROADCAST_ADDR
// is configured — a loopback sink suitable for local/dev use.
const defaultBroadcastAddr = "127.0.0.1:9999"

var socketUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handlers holds every dependency the control plane mutates or reads, per
// spec.md §6.
type Handlers struct {
	reg          *registry.Registry
	sup          *supervisor.Supervisor
	sched        *scheduler.Scheduler
	rings        *RingManager
	sockets      *SocketRegistry
	datasetsRoot string
	outputDir    string
	broadcastAddr string
	logger       logging.Logger
}

// New constructs the control-plane Handlers.
func New(reg *registry.Registry, sup *supervisor.Supervisor, sched *scheduler.Scheduler, rings *RingManager, sockets *SocketRegistry, datasetsRoot, outputDir, broadcastAddr string, logger logging.Logger) *Handlers {
	if broadcastAddr == "" {
		broadcastAddr = defaultBroadcastAddr
	}
	return &Handlers{
		reg: reg, sup: sup, sched: sched, rings: rings, sockets: sockets,
		datasetsRoot: datasetsRoot, outputDir: outputDir, broadcastAddr: broadcastAddr, logger: logger,
	}
}

// RegisterRoutes mounts every spec.md §6 endpoint on r.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/datasets", h.listDatasets)
	r.GET("/datasets/ply_files", h.listPlyFiles)
	r.GET("/egress/update_settings", h.egressUpdateSettings)
	r.POST("/frames/receive", h.framesReceive)
	r.GET("/start_job", h.startJob)
	r.GET("/stop_job", h.stopJob)
	r.GET("/stop_all_jobs", h.stopAllJobs)
	r.GET("/streams/update_settings", h.streamsUpdateSettings)
	r.GET("/streams/list", h.streamsList)
	r.GET("/sockets", h.listSockets)
	r.GET("/sockets/clean", h.cleanSockets)
	r.GET("/sockets/connect", h.connectSocket)
}

// GET /datasets — list dataset folders.
func (h *Handlers) listDatasets(c *gin.Context) {
	entries, err := os.ReadDir(h.datasetsRoot)
	if err != nil {
		fail(c, model.NewError(model.ErrIO, "read datasets root: %v", err))
		return
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	ok(c, gin.H{"datasets": names})
}

// GET /datasets/ply_files?dataset=&ply_folder= — list frames in folder.
func (h *Handlers) listPlyFiles(c *gin.Context) {
	dataset := c.Query("dataset")
	plyFolder := c.Query("ply_folder")
	if dataset == "" {
		fail(c, model.NewError(model.ErrInvalidArgument, "dataset is required"))
		return
	}
	dir := filepath.Join(h.datasetsRoot, dataset)
	if plyFolder != "" {
		dir = filepath.Join(dir, plyFolder)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		fail(c, model.NewError(model.ErrNotFound, "dataset folder %q: %v", dir, err))
		return
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	ok(c, gin.H{"files": files})
}

// GET /egress/update_settings — mutate __default__'s global egress defaults.
func (h *Handlers) egressUpdateSettings(c *gin.Context) {
	protocol := model.EgressProtocol(c.Query("egress_protocol"))
	if protocol == "" {
		fail(c, model.NewError(model.ErrInvalidArgument, "egress_protocol is required"))
		return
	}

	settings := model.Settings{EgressProtocol: &protocol}
	if v := c.Query("fps"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "fps: %v", err))
			return
		}
		settings.FPS = &f
	}
	if v := c.Query("encoding_format"); v != "" {
		ef := model.EncodingFormat(v)
		if _, err := codec.ForFormat(ef); err != nil {
			fail(c, err)
			return
		}
		settings.EncodingFormat = &ef
	}
	if v := c.Query("max_number_of_points"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "max_number_of_points: %v", err))
			return
		}
		n32 := uint32(n)
		settings.MaxNumberOfPoints = &n32
	}
	if v := c.Query("emit_with_ack"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "emit_with_ack: %v", err))
			return
		}
		settings.EmitWithAck = &b
	}
	if v := c.Query("content_encoding"); v != "" {
		settings.ContentEncoding = &v
	}
	if v := c.Query("fec"); v != "" {
		fs := model.FECScheme(v)
		settings.FEC = &fs
	}
	if v := c.Query("fec_percentage"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			fail(c, model.NewError(model.ErrInvalidArgument, "fec_percentage must be in [0,1]"))
			return
		}
		settings.FECPercentage = &f
	}
	if v := c.Query("bandwidth"); v != "" {
		b, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "bandwidth: %v", err))
			return
		}
		settings.Bandwidth = &b
	}
	if v := c.Query("md5"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "md5: %v", err))
			return
		}
		settings.MD5 = &b
	}

	stream, err := h.reg.Update(model.DefaultStreamID, settings)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stream)
}

// POST /frames/receive — ingest one frame for a stream.
func (h *Handlers) framesReceive(c *gin.Context) {
	var body struct {
		StreamID  string `json:"stream_id"`
		FrameData string `json:"frame_data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, model.NewError(model.ErrInvalidArgument, "invalid request body: %v", err))
		return
	}
	if body.StreamID == "" {
		body.StreamID = model.DefaultStreamID
	}

	raw, err := base64.StdEncoding.DecodeString(body.FrameData)
	if err != nil {
		fail(c, model.NewError(model.ErrInvalidArgument, "frame_data: %v", err))
		return
	}

	settings, err := h.reg.ResolvedSettings(body.StreamID)
	if err != nil {
		fail(c, err)
		return
	}
	format := model.FormatPly
	if settings.EncodingFormat != nil {
		format = *settings.EncodingFormat
	}
	c2, err := codec.ForFormat(format)
	if err != nil {
		fail(c, err)
		return
	}
	points, err := c2.Decode(raw)
	if err != nil {
		fail(c, err)
		return
	}

	frame := model.Frame{StreamID: body.StreamID, Points: points}
	pipeline.Ingest(c.Request.Context(), h.reg, h.sched, h.rings, frame)
	ok(c, gin.H{"accepted": true, "points": points.Len()})
}

// GET /start_job — start transmission.
func (h *Handlers) startJob(c *gin.Context) {
	spec := model.JobSpec{
		Dataset:        c.Query("dataset"),
		PlyFolder:      c.Query("ply_folder"),
		GeneratorName:  model.GeneratorName(c.Query("generator_name")),
		EgressProtocol: model.EgressProtocol(c.Query("egress_protocol")),
		StreamID:       c.Query("stream_id"),
	}
	if v := c.Query("fps"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "fps: %v", err))
			return
		}
		spec.FPS = f
	}
	if v := c.Query("presentation_time_offset"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "presentation_time_offset: %v", err))
			return
		}
		spec.PresentationTimeOffsetMS = n
	}
	if v := c.Query("should_loop"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "should_loop: %v", err))
			return
		}
		spec.ShouldLoop = b
	}
	if v := c.Query("priority"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "priority: %v", err))
			return
		}
		spec.Priority = uint8(n)
	}

	var source supervisor.Source
	var err error
	if spec.SourceKind() == model.SourceGenerator {
		source = supervisor.NewGeneratorSource(spec.GeneratorName)
	} else {
		if spec.Dataset == "" {
			fail(c, model.NewError(model.ErrInvalidArgument, "dataset is required unless generator_name is set"))
			return
		}
		dir := filepath.Join(h.datasetsRoot, spec.Dataset)
		if spec.PlyFolder != "" {
			dir = filepath.Join(dir, spec.PlyFolder)
		}
		source, err = supervisor.NewDatasetSource(dir, spec.ShouldLoop)
		if err != nil {
			fail(c, err)
			return
		}
	}

	// The stream_id is pinned before StartJob so the broadcast sender is
	// registered with the scheduler before any frame can reach it.
	if spec.StreamID == "" {
		spec.StreamID = "stream-" + uuid.NewString()
	}
	settings, err := h.reg.ResolvedSettings(spec.StreamID)
	if err != nil {
		fail(c, err)
		return
	}
	protocol := spec.EgressProtocol
	if protocol == "" && settings.EgressProtocol != nil {
		protocol = *settings.EgressProtocol
	}
	sender, err := h.buildBroadcastSender(protocol, spec.StreamID, settings)
	if err != nil {
		fail(c, err)
		return
	}
	h.sched.RegisterSenders(spec.StreamID, scheduler.StreamSenders{Broadcast: sender})

	job, err := h.sup.StartJob(spec, source)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, job)
}

// buildBroadcastSender constructs the layer-0 sender for a newly started
// job. WebSocket/WebRTC cannot serve as the broadcast layer without a live
// peer connection; those are attached as enhancement senders once a peer
// reaches /sockets/connect.
func (h *Handlers) buildBroadcastSender(protocol model.EgressProtocol, streamID string, settings model.Settings) (egress.Sender, error) {
	switch protocol {
	case model.ProtocolFlute, "":
		ch := model.EgressChannel{Protocol: model.ProtocolFlute}
		if settings.FEC != nil {
			ch.FEC = *settings.FEC
		}
		if settings.FECPercentage != nil {
			ch.FECPercentage = *settings.FECPercentage
		}
		var bandwidth uint64
		if settings.Bandwidth != nil {
			bandwidth = *settings.Bandwidth
		}
		return egress.NewBroadcastSender(h.broadcastAddr, bandwidth, ch)
	case model.ProtocolFile:
		path := filepath.Join(h.outputDir, streamID+".bin")
		return egress.NewFileSender(path)
	default:
		return nil, model.NewError(model.ErrInvalidArgument,
			"egress_protocol %q requires an established connection; connect via /sockets/connect first", protocol)
	}
}

// GET /sockets/connect?stream_id=&emit_with_ack= — upgrade to a unicast
// WebSocket enhancement sender for stream_id.
func (h *Handlers) connectSocket(c *gin.Context) {
	streamID := c.Query("stream_id")
	if streamID == "" {
		fail(c, model.NewError(model.ErrInvalidArgument, "stream_id is required"))
		return
	}
	settings, err := h.reg.ResolvedSettings(streamID)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := socketUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		fail(c, model.NewError(model.ErrIO, "websocket upgrade: %v", err))
		return
	}

	emitWithAck := false
	if settings.EmitWithAck != nil {
		emitWithAck = *settings.EmitWithAck
	}
	sender := egress.NewWebSocketSender(conn, model.EgressChannel{Protocol: model.ProtocolWebSocket, EmitWithAck: emitWithAck})

	socketID := uuid.NewString()
	h.sockets.Register(socketID, streamID, sender)
	h.sched.AddEnhancementSender(streamID, sender)

	if !emitWithAck {
		// Without emit_with_ack, WebSocketSender never reads conn itself;
		// a discard reader is the only way to notice the peer disconnecting.
		go func() {
			defer h.sockets.Unregister(socketID)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// GET /stop_job?job_id=
func (h *Handlers) stopJob(c *gin.Context) {
	jobID := c.Query("job_id")
	if jobID == "" {
		fail(c, model.NewError(model.ErrInvalidArgument, "job_id is required"))
		return
	}
	if err := h.sup.StopJob(jobID); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"job_id": jobID, "stopped": true})
}

// GET /stop_all_jobs
func (h *Handlers) stopAllJobs(c *gin.Context) {
	if err := h.sup.StopAllJobs(); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"stopped": true})
}

// GET /streams/update_settings
func (h *Handlers) streamsUpdateSettings(c *gin.Context) {
	streamID := c.Query("stream_id")
	if streamID == "" {
		fail(c, model.NewError(model.ErrInvalidArgument, "stream_id is required"))
		return
	}

	var settings model.Settings
	if v := c.Query("priority"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "priority: %v", err))
			return
		}
		p := uint8(n)
		settings.Priority = &p
	}
	if v := c.Query("egress_protocols"); v != "" {
		var protos []model.EgressProtocol
		for _, p := range strings.Split(v, ",") {
			protos = append(protos, model.EgressProtocol(strings.TrimSpace(p)))
		}
		settings.EgressProtocols = protos
	}
	if v := c.Query("process_incoming_frames"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "process_incoming_frames: %v", err))
			return
		}
		settings.ProcessIncomingFrames = &b
	}
	if pose, err := parsePose(c); err != nil {
		fail(c, err)
		return
	} else if pose != nil {
		settings.Pose = pose
	}
	if v := c.Query("presentation_time_offset"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "presentation_time_offset: %v", err))
			return
		}
		settings.PresentationTimeOffsetMS = &n
	}
	if v := c.Query("decode_bypass"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "decode_bypass: %v", err))
			return
		}
		settings.DecodeBypass = &b
	}
	if v := c.Query("aggregator_bypass"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "aggregator_bypass: %v", err))
			return
		}
		settings.AggregatorBypass = &b
	}
	if v := c.Query("ring_buffer_bypass"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, model.NewError(model.ErrInvalidArgument, "ring_buffer_bypass: %v", err))
			return
		}
		settings.RingBufferBypass = &b
	}
	if v := c.Query("max_point_percentages"); v != "" {
		pcts, err := parsePercentages(v)
		if err != nil {
			fail(c, err)
			return
		}
		settings.MaxPointPercentages = pcts
	}

	stream, err := h.reg.Update(streamID, settings)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stream)
}

func parsePose(c *gin.Context) (*model.Pose, error) {
	position := c.Query("position")
	rotation := c.Query("rotation")
	scale := c.Query("scale")
	if position == "" && rotation == "" && scale == "" {
		return nil, nil
	}
	pose := &model.Pose{Scale: [3]float32{1, 1, 1}}
	if position != "" {
		v, err := parseVec3(position)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidArgument, "position: %v", err)
		}
		pose.Position = v
	}
	if rotation != "" {
		v, err := parseVec3(rotation)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidArgument, "rotation: %v", err)
		}
		pose.Rotation = v
	}
	if scale != "" {
		v, err := parseVec3(scale)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidArgument, "scale: %v", err)
		}
		pose.Scale = v
	}
	return pose, nil
}

func parseVec3(s string) ([3]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float32{}, model.NewError(model.ErrInvalidArgument, "expected 3 comma-separated components, got %q", s)
	}
	var out [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return [3]float32{}, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func parsePercentages(s string) ([]uint8, error) {
	parts := strings.Split(s, ",")
	out := make([]uint8, 0, len(parts))
	var sum int
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidArgument, "max_point_percentages: %v", err)
		}
		out = append(out, uint8(n))
		sum += int(n)
	}
	if sum != 100 {
		return nil, model.NewError(model.ErrInvalidArgument, "max_point_percentages must sum to 100, got %d", sum)
	}
	return out, nil
}

// GET /streams/list
func (h *Handlers) streamsList(c *gin.Context) {
	ok(c, gin.H{"streams": h.reg.List()})
}

// GET /sockets
func (h *Handlers) listSockets(c *gin.Context) {
	ok(c, gin.H{"sockets": h.sockets.List()})
}

// GET /sockets/clean?sockets=csv
func (h *Handlers) cleanSockets(c *gin.Context) {
	v := c.Query("sockets")
	if v == "" {
		fail(c, model.NewError(model.ErrInvalidArgument, "sockets is required"))
		return
	}
	ids := strings.Split(v, ",")
	cleaned := h.sockets.Clean(ids)
	ok(c, gin.H{"cleaned": cleaned})
}
