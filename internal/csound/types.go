package csound

// Message type and style attributes (CSOUNDMSG_*).
const (
	MsgDefault  = 0x0000
	MsgError    = 0x1000
	MsgOrch     = 0x2000
	MsgRealtime = 0x3000
	MsgWarning  = 0x4000
	MsgStdout   = 0x5000
	MsgTypeMask = 0x7000

	MsgFgBlack     = 0x0100
	MsgFgRed       = 0x0101
	MsgFgGreen     = 0x0102
	MsgFgYellow    = 0x0103
	MsgFgBlue      = 0x0104
	MsgFgMagenta   = 0x0105
	MsgFgCyan      = 0x0106
	MsgFgWhite     = 0x0107
	MsgFgColorMask = 0x0107

	MsgFgBold      = 0x0008
	MsgFgUnderline = 0x0080
	MsgFgAttrMask  = 0x0088

	MsgBgBlack     = 0x0200
	MsgBgRed       = 0x0210
	MsgBgGreen     = 0x0220
	MsgBgOrange    = 0x0230
	MsgBgBlue      = 0x0240
	MsgBgMagenta   = 0x0250
	MsgBgCyan      = 0x0260
	MsgBgGrey      = 0x0270
	MsgBgColorMask = 0x0270
)

// Attributes decodes a message attribute bitmask.
type Attributes int

// Type returns the message type (MsgDefault, MsgError, ...).
func (a Attributes) Type() int { return int(a) & MsgTypeMask }

// Foreground returns the foreground color, or 0 if none is set.
func (a Attributes) Foreground() int { return int(a) & MsgFgColorMask }

// Background returns the background color, or 0 if none is set.
func (a Attributes) Background() int { return int(a) & MsgBgColorMask }

// Bold reports whether the bold attribute is set.
func (a Attributes) Bold() bool { return int(a)&MsgFgBold != 0 }

// Underline reports whether the underline attribute is set.
func (a Attributes) Underline() bool { return int(a)&MsgFgUnderline != 0 }

// Control channel types, modes and behaviors.
const (
	ChannelControl  = 1
	ChannelAudio    = 2
	ChannelString   = 3
	ChannelPvs      = 4
	ChannelVar      = 5
	ChannelTypeMask = 15

	ChannelInput  = 16
	ChannelOutput = 32

	ChannelNoHints     = 0
	ChannelInteger     = 1
	ChannelLinear      = 2
	ChannelExponential = 3
)

// File types reported to file-open callbacks (CSFTYPE_*).
const (
	FileUnknown     = 0
	FileUnifiedCsd  = 1
	FileOrchestra   = 2
	FileScore       = 3
	FileOrcInclude  = 4
	FileScoInclude  = 5
	FileScoreOut    = 6
	FileScot        = 7
	FileOptions     = 8
	FileExtractPrms = 9

	// Audio file types.
	FileRawAudio     = 10
	FileIrcam        = 11
	FileAiff         = 12
	FileAifc         = 13
	FileWave         = 14
	FileAu           = 15
	FileSd2          = 16
	FileW64          = 17
	FileWavex        = 18
	FileFlac         = 19
	FileCaf          = 20
	FileWve          = 21
	FileOgg          = 22
	FileMpc2k        = 23
	FileRf64         = 24
	FileAvr          = 25
	FileHtk          = 26
	FileMat4         = 27
	FileMat5         = 28
	FileNist         = 29
	FilePaf          = 30
	FilePvf          = 31
	FileSds          = 32
	FileSvx          = 33
	FileVoc          = 34
	FileXi           = 35
	FileUnknownAudio = 36
)

// WindowData is a copy of a Csound WINDAT graph descriptor.
type WindowData struct {
	ID       uintptr
	Caption  string
	Samples  []float64
	Polarity int
	Max      float64
	Min      float64
	AbsMax   float64
	OAbsMax  float64
}

// Snapshot returns a deep copy of w.
func (w *WindowData) Snapshot() *WindowData {
	if w == nil {
		return nil
	}
	c := *w
	c.Samples = append([]float64(nil), w.Samples...)
	return &c
}

// DebugInstrument describes an active instrument instance.
type DebugInstrument struct {
	P1       float64
	P2       float64
	P3       float64
	KCounter uint64
	Line     int
}

// DebugVariable is a variable of the instrument that hit a breakpoint.
// Value holds a float64 for numeric types and a string for type "S".
type DebugVariable struct {
	Name     string
	TypeName string
	Value    any
}

// DebugOpcode identifies the opcode a breakpoint stopped at.
type DebugOpcode struct {
	Name string
	Line int
}

// BreakpointInfo is a copy of the state reported when a breakpoint is hit.
type BreakpointInfo struct {
	Instrument    *DebugInstrument
	Variables     []DebugVariable
	Instruments   []DebugInstrument
	CurrentOpcode *DebugOpcode
}

// OpcodeEntry is one item of the opcode list.
type OpcodeEntry struct {
	Name        string
	OutputTypes string
	InputTypes  string
	Flags       int
}

// ChannelHints are the optional hints of a control channel.
type ChannelHints struct {
	Behavior   int
	Default    float64
	Min        float64
	Max        float64
	X, Y       int
	Width      int
	Height     int
	Attributes string
}

// ChannelInfo is one item of the channel list.
type ChannelInfo struct {
	Name  string
	Type  int
	Hints ChannelHints
}
