package whatsapp

// Limits implements richmessage.Limits with WhatsApp's interactive-
// message constraints: at most 3 reply buttons, at most 10 list rows,
// and WhatsApp's documented title/body character caps.
type Limits struct{}

func (Limits) MaxButtons() int     { return 3 }
func (Limits) MaxListRows() int    { return 10 }
func (Limits) MaxTitleLength() int { return 24 }
func (Limits) MaxBodyLength() int  { return 72 }
