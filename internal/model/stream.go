package model

// StreamState is the lifecycle state of a Stream.
type StreamState string

const (
	StreamIdle      StreamState = "IDLE"
	StreamAdmitted  StreamState = "ADMITTED"
	StreamActive    StreamState = "ACTIVE"
	StreamDraining  StreamState = "DRAINING"
	StreamStopped   StreamState = "STOPPED"
)

// EgressProtocol names a C4 sender protocol.
type EgressProtocol string

const (
	ProtocolWebSocket EgressProtocol = "WebSocket"
	ProtocolWebRTC    EgressProtocol = "WebRTC"
	ProtocolFlute     EgressProtocol = "Flute"
	ProtocolFile      EgressProtocol = "File"
)

// EncodingFormat names a C1 codec facade implementation.
type EncodingFormat string

const (
	FormatPly     EncodingFormat = "Ply"
	FormatDraco   EncodingFormat = "Draco"
	FormatLASzip  EncodingFormat = "LASzip"
	FormatTmf     EncodingFormat = "Tmf"
	FormatBitcode EncodingFormat = "Bitcode"
)

// FECScheme names the repair scheme applied to the broadcast layer.
type FECScheme string

const (
	FECNone         FECScheme = ""
	FECReedSolomon  FECScheme = "reed-solomon"
)

// Pose is opaque to the core; it is surfaced to C4 senders verbatim.
type Pose struct {
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// EgressChannel configures one C4 sender instance.
type EgressChannel struct {
	Protocol        EgressProtocol
	BandwidthBps    *uint64 // nil = uncapped
	FEC             FECScheme
	FECPercentage   float64 // [0,1], broadcast only
	ContentEncoding string  // "", "gzip"
	EmitWithAck     bool
	MD5             bool
}

// Settings holds the recognized per-stream options of spec.md §6. Fields
// left nil/zero-value inherit from __default__ at merge time (see
// internal/registry).
type Settings struct {
	Priority                *uint8
	EgressProtocols         []EgressProtocol
	ProcessIncomingFrames   *bool
	Pose                    *Pose
	PresentationTimeOffsetMS *uint64
	DecodeBypass            *bool
	AggregatorBypass        *bool
	RingBufferBypass        *bool
	MaxPointPercentages     []uint8 // sums to 100

	// Global egress defaults (applied to __default__ via /egress/update_settings).
	EgressProtocol      *EgressProtocol
	FPS                 *float64
	EncodingFormat      *EncodingFormat
	MaxNumberOfPoints   *uint32
	EmitWithAck         *bool
	ContentEncoding     *string
	FEC                 *FECScheme
	FECPercentage       *float64
	Bandwidth           *uint64
	MD5                 *bool
}

// Merge overlays non-nil fields of override onto a copy of base and returns
// the merged result. Slices are replaced wholesale, never appended.
func (base Settings) Merge(override Settings) Settings {
	out := base
	if override.Priority != nil {
		out.Priority = override.Priority
	}
	if override.EgressProtocols != nil {
		out.EgressProtocols = override.EgressProtocols
	}
	if override.ProcessIncomingFrames != nil {
		out.ProcessIncomingFrames = override.ProcessIncomingFrames
	}
	if override.Pose != nil {
		out.Pose = override.Pose
	}
	if override.PresentationTimeOffsetMS != nil {
		out.PresentationTimeOffsetMS = override.PresentationTimeOffsetMS
	}
	if override.DecodeBypass != nil {
		out.DecodeBypass = override.DecodeBypass
	}
	if override.AggregatorBypass != nil {
		out.AggregatorBypass = override.AggregatorBypass
	}
	if override.RingBufferBypass != nil {
		out.RingBufferBypass = override.RingBufferBypass
	}
	if override.MaxPointPercentages != nil {
		out.MaxPointPercentages = override.MaxPointPercentages
	}
	if override.EgressProtocol != nil {
		out.EgressProtocol = override.EgressProtocol
	}
	if override.FPS != nil {
		out.FPS = override.FPS
	}
	if override.EncodingFormat != nil {
		out.EncodingFormat = override.EncodingFormat
	}
	if override.MaxNumberOfPoints != nil {
		out.MaxNumberOfPoints = override.MaxNumberOfPoints
	}
	if override.EmitWithAck != nil {
		out.EmitWithAck = override.EmitWithAck
	}
	if override.ContentEncoding != nil {
		out.ContentEncoding = override.ContentEncoding
	}
	if override.FEC != nil {
		out.FEC = override.FEC
	}
	if override.FECPercentage != nil {
		out.FECPercentage = override.FECPercentage
	}
	if override.Bandwidth != nil {
		out.Bandwidth = override.Bandwidth
	}
	if override.MD5 != nil {
		out.MD5 = override.MD5
	}
	return out
}

// Stream is the registry's per-stream record.
type Stream struct {
	StreamID     string
	State        StreamState
	ActiveJobID  string
	Settings     Settings
}

// StreamSummary is the list() projection.
type StreamSummary struct {
	StreamID    string
	State       StreamState
	ActiveJobID string
	Settings    Settings
}
