package handshakes

import (
	"bufio"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dep2p/go-handshakes/internal/core/resourcemgr"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
)

const (
	// uploadRequestTimeout 读取请求头的超时
	uploadRequestTimeout = 30 * time.Second

	// maxUploadHeaderBytes 请求头（不含首行）的字节上限
	maxUploadHeaderBytes = 8 << 10
)

// uploadHandler 内置 HTTP 上传处理器
//
// 占用上传槽位后应答请求。本包不管理共享库，占到槽位的请求一律应答 404；
// 槽位已满时应答 503。需要真正提供文件时用 WithHandler 替换。
type uploadHandler struct {
	slots *resourcemgr.UploadSlots
}

func newUploadHandler(slots *resourcemgr.UploadSlots) *uploadHandler {
	return &uploadHandler{slots: slots}
}

// Serve 处理一个移交的 HTTP 连接
func (u *uploadHandler) Serve(h interfaces.Handoff) {
	defer h.Conn.Close()
	_ = h.Conn.SetDeadline(time.Now().Add(uploadRequestTimeout))

	// 首行已被握手读走，拼回去再交给 http 解析；超出上限的请求头读到 EOF
	br := bufio.NewReader(io.MultiReader(
		strings.NewReader(h.Greeting+"\r\n"),
		io.LimitReader(h.Reader, maxUploadHeaderBytes),
	))
	req, err := http.ReadRequest(br)
	if err != nil {
		logger.Debug("读取上传请求失败", "remote", h.Remote, "error", err)
		return
	}

	if err := u.slots.BeginUpload(h.Remote.Addr); err != nil {
		logger.Debug("上传槽位已满", "remote", h.Remote, "path", req.URL.Path)
		writeUploadStatus(h.Conn, req, http.StatusServiceUnavailable, "503 Busy", http.Header{"Retry-After": {"60"}})
		return
	}
	defer u.slots.EndUpload(h.Remote.Addr)

	writeUploadStatus(h.Conn, req, http.StatusNotFound, "", nil)
}

// writeUploadStatus 写一个无正文的应答
func writeUploadStatus(w io.Writer, req *http.Request, code int, status string, header http.Header) {
	if header == nil {
		header = http.Header{}
	}
	resp := &http.Response{
		Status:     status,
		StatusCode: code,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Request:    req,
		Close:      true,
	}
	if err := resp.Write(w); err != nil {
		logger.Debug("写上传应答失败", "error", err)
	}
}
