package notifications

// Message is one outbound email
type Message struct {
	To      string
	Subject string
	Body    string
}

// reviewNotice is the data rendered into review outcome templates
type reviewNotice struct {
	Name        string
	RequestType string
	Reason      string
	Suspended   bool
}
