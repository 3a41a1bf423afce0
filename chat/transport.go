package chat

// AttachmentRef points at binary content bound to one send run. The payload
// owns it exclusively for the duration of the run.
type AttachmentRef struct {
	Name      string
	MediaType string
	Data      []byte
}

// Transport is the contract the dispatcher drives the external chat surface
// through. How a transport locates controls (selector chains, icon identity,
// accessible labels) is entirely its own business; the dispatcher only sees
// success, failure, and categorized error conditions. No call is assumed
// synchronous: state transitions are always confirmed by polling.
type Transport interface {
	//OpenConversation asks the surface to open a chat with the phone,
	//fire-and-forget
	OpenConversation(phone string) error
	//ComposerPresent reports whether the message composer is available
	ComposerPresent() (bool, error)
	//ErrorCondition reports a recognized error rendered by the surface,
	//classified into a failure category
	ErrorCondition() (category string, present bool, err error)
	//InsertText types one line into the composer
	InsertText(line string) error
	//TriggerSend activates the send control, falling back to a simulated
	//keyboard submit when no control is found
	TriggerSend() error
	//OpenAttachmentPicker activates the attach control, reporting whether
	//one was found
	OpenAttachmentPicker() (bool, error)
	//BindFile binds the binary payload to the file-selection surface
	BindFile(ref AttachmentRef) error
	//AttachmentConfirmVisible reports whether the attachment confirm
	//control has materialized
	AttachmentConfirmVisible() (bool, error)
	//TriggerAttachmentConfirm activates the attachment confirm control
	TriggerAttachmentConfirm() error
}
