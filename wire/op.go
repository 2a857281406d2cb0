package wire

// Op is a XenStore wire operation code, see xen/include/public/io/xs_wire.h.
type Op uint32

const (
	Debug              Op = 0
	Directory          Op = 1
	Read               Op = 2
	GetPerms           Op = 3
	Watch              Op = 4
	Unwatch            Op = 5
	TransactionStart   Op = 6
	TransactionEnd     Op = 7
	Introduce          Op = 8
	Release            Op = 9
	GetDomainPath      Op = 10
	Write              Op = 11
	Mkdir              Op = 12
	Rm                 Op = 13
	SetPerms           Op = 14
	WatchEvent         Op = 15
	Error              Op = 16
	IsDomainIntroduced Op = 17
	Resume             Op = 18
	SetTarget          Op = 19
	Restrict           Op = 128
)

// MaxPayload is the largest payload, in bytes, the wire protocol allows.
const MaxPayload = 4096

// NUL is the argument separator/terminator used throughout the payload
// encoding.
const NUL = 0x00

// valid reports whether op is one of the recognized wire operations.
func (op Op) valid() bool {
	switch op {
	case Debug, Directory, Read, GetPerms, Watch, Unwatch, TransactionStart,
		TransactionEnd, Introduce, Release, GetDomainPath, Write, Mkdir, Rm,
		SetPerms, WatchEvent, Error, IsDomainIntroduced, Resume, SetTarget,
		Restrict:
		return true
	default:
		return false
	}
}

func (op Op) String() string {
	switch op {
	case Debug:
		return "DEBUG"
	case Directory:
		return "DIRECTORY"
	case Read:
		return "READ"
	case GetPerms:
		return "GET_PERMS"
	case Watch:
		return "WATCH"
	case Unwatch:
		return "UNWATCH"
	case TransactionStart:
		return "TRANSACTION_START"
	case TransactionEnd:
		return "TRANSACTION_END"
	case Introduce:
		return "INTRODUCE"
	case Release:
		return "RELEASE"
	case GetDomainPath:
		return "GET_DOMAIN_PATH"
	case Write:
		return "WRITE"
	case Mkdir:
		return "MKDIR"
	case Rm:
		return "RM"
	case SetPerms:
		return "SET_PERMS"
	case WatchEvent:
		return "WATCH_EVENT"
	case Error:
		return "ERROR"
	case IsDomainIntroduced:
		return "IS_DOMAIN_INTRODUCED"
	case Resume:
		return "RESUME"
	case SetTarget:
		return "SET_TARGET"
	case Restrict:
		return "RESTRICT"
	default:
		return "UNKNOWN"
	}
}
