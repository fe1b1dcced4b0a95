// SPDX-License-Identifier: Apache-2.0
package main

import (
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"irpipe/internal/lsp"
)

const lsName = "irpipe" // Name identifier for the language server

var (
	version = "0.1.0"        // Server version
	handler protocol.Handler // Protocol handler instance (wired up below)
)

func main() {
	// Configure debug logging (1 = debug level, nil = default logger)
	commonlog.Configure(1, nil)
	log := commonlog.GetLogger("irpipe.lsp")

	irHandler := lsp.NewIRHandler()

	// Wire up the handler with specific LSP method implementations
	handler = protocol.Handler{
		Initialize:                     irHandler.Initialize,
		Initialized:                    irHandler.Initialized,
		Shutdown:                       irHandler.Shutdown,
		SetTrace:                       irHandler.SetTrace,
		TextDocumentDidOpen:            irHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           irHandler.TextDocumentDidClose,
		TextDocumentDidChange:          irHandler.TextDocumentDidChange,
		TextDocumentCompletion:         irHandler.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: irHandler.TextDocumentSemanticTokensFull,
	}

	// Create a new GLSP server instance
	// Parameters:
	// - handler: the protocol handler struct
	// - name: the language server name (shown to clients)
	// - debug: whether to enable internal GLSP debug logs
	s := server.NewServer(&handler, lsName, false)

	log.Infof("Starting irpipe LSP server %s...", version)

	// Start the server over standard input/output (used by most editors for LSP)
	if err := s.RunStdio(); err != nil {
		log.Errorf("Error starting irpipe LSP server: %s", err)
		os.Exit(1)
	}
}
