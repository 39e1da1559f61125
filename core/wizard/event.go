package wizard

import "strings"

// EventKind names the variant of an inbound Event.
type EventKind string

const (
	KindEnter    EventKind = "enter"
	KindCommand  EventKind = "command"
	KindCallback EventKind = "callback"
	KindText     EventKind = "text"
	KindLocation EventKind = "location"
	KindContact  EventKind = "contact"
	KindPhoto    EventKind = "photo"
	KindDocument EventKind = "document"
)

// Event is the closed set of inbound chat events. Only types in this package
// implement it.
type Event interface {
	Kind() EventKind
	sealed()
}

// Enter is synthesised by the engine when a scene starts or is re-entered.
type Enter struct{}

// Command is a slash command such as /pets. Name has no leading slash.
type Command struct {
	Name string
	Args string
}

// Callback is an inline button press. Data is the button's data verbatim.
type Callback struct {
	Data string
}

// Text is a plain text message.
type Text struct {
	Content string
}

// Location is a shared map point.
type Location struct {
	Lat float64
	Lon float64
}

// Contact is a shared phone contact.
type Contact struct {
	Phone     string
	FirstName string
	LastName  string
	UserID    int64
}

// Photo carries the platform reference of the largest photo size.
type Photo struct {
	FileRef string
}

// Document is a file sent without compression.
type Document struct {
	FileRef  string
	FileName string
}

func (Enter) Kind() EventKind    { return KindEnter }
func (Command) Kind() EventKind  { return KindCommand }
func (Callback) Kind() EventKind { return KindCallback }
func (Text) Kind() EventKind     { return KindText }
func (Location) Kind() EventKind { return KindLocation }
func (Contact) Kind() EventKind  { return KindContact }
func (Photo) Kind() EventKind    { return KindPhoto }
func (Document) Kind() EventKind { return KindDocument }

func (Enter) sealed()    {}
func (Command) sealed()  {}
func (Callback) sealed() {}
func (Text) sealed()     {}
func (Location) sealed() {}
func (Contact) sealed()  {}
func (Photo) sealed()    {}
func (Document) sealed() {}

// ParseCommand turns "/pets@WooFinderBot arg" into Command{Name: "pets", Args: "arg"}.
// ok is false when text is not a command.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return Command{}, false
	}
	head, args, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(head), Args: strings.TrimSpace(args)}, true
}
