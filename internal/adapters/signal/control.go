package signal

func (ctl *GatewayWSController) handlePing(c *WsGatewayConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}
