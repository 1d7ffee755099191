package okx

// Venue is the canonical venue name used for OKX snapshots.
const Venue = "OKX"

const (
	booksPath    = "/api/v5/market/books"
	booksChannel = "books5"
	maxRESTDepth = 400
	defaultDepth = 400
	successCode  = "0"
	pongFrame    = "pong"
	pingFrame    = "ping"
	subscribeOp  = "subscribe"
	eventError   = "error"
	eventSubAck  = "subscribe"
)

// booksResponse is the body of GET /api/v5/market/books.
type booksResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data []bookData `json:"data"`
}

// bookData is one depth payload. Each level is
// [price, size, deprecated, orderCount], all strings.
type bookData struct {
	Asks   [][]string `json:"asks"`
	Bids   [][]string `json:"bids"`
	Ts     string     `json:"ts"`
	InstID string     `json:"instId,omitempty"`
	SeqID  int64      `json:"seqId,omitempty"`
}

// errorResponse is returned with 4xx statuses and with code != "0".
type errorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type subscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

// pushMessage covers both channel pushes and event frames on the public socket.
type pushMessage struct {
	Event string       `json:"event,omitempty"`
	Code  string       `json:"code,omitempty"`
	Msg   string       `json:"msg,omitempty"`
	Arg   subscribeArg `json:"arg"`
	Data  []bookData   `json:"data,omitempty"`
}
