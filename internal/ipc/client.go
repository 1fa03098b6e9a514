package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit queues a transcription job.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	return call[SubmitRequest, SubmitResponse](c, "Submit", req)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// Job looks up a single job.
func (c *Client) Job(id string) (*JobResponse, error) {
	return call[JobRequest, JobResponse](c, "Job", JobRequest{ID: id})
}

// TestNotification sends a test alert, plus a test mail when receiver is set.
func (c *Client) TestNotification(receiver string) (*TestNotificationResponse, error) {
	return call[TestNotificationRequest, TestNotificationResponse](c, "TestNotification", TestNotificationRequest{Receiver: receiver})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailRequest, LogTailResponse](c, "LogTail", req)
}

// Shutdown asks the daemon process to exit once in-flight jobs finish.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	return call[ShutdownRequest, ShutdownResponse](c, "Shutdown", ShutdownRequest{})
}
