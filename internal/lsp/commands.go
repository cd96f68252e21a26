package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/assetsync"
)

// Commands served by workspace/executeCommand.
const (
	CommandSync        = "vale-ls.sync"
	CommandInstall     = "vale-ls.install"
	CommandAddToAccept = "vale-ls.addToAccept"
	CommandAddToReject = "vale-ls.addToReject"
)

// Commands lists every command the server executes.
var Commands = []string{CommandSync, CommandInstall, CommandAddToAccept, CommandAddToReject}

// termArgs is the argument of the vocabulary commands. A bare JSON string
// is accepted as the term.
type termArgs struct {
	Term  string `json:"term"`
	Vocab string `json:"vocab,omitempty"`
	URI   string `json:"uri,omitempty"`
}

func (a *termArgs) UnmarshalJSON(data []byte) error {
	var term string
	if err := json.Unmarshal(data, &term); err == nil {
		a.Term = term
		return nil
	}
	type plain termArgs
	return json.Unmarshal(data, (*plain)(a))
}

func (s *Server) handleExecuteCommand(msg *JSONRPCMessage) error {
	var params ExecuteCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, invalidParams(err))
		return err
	}

	switch params.Command {
	case CommandSync:
		s.runSync()
	case CommandInstall:
		var version string
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments[0], &version); err != nil {
				s.sendResponse(msg.ID, nil, invalidParams(err))
				return err
			}
		}
		s.runInstall(version)
	case CommandAddToAccept, CommandAddToReject:
		var args termArgs
		if len(params.Arguments) == 0 {
			err := errors.New("missing term argument")
			s.sendResponse(msg.ID, nil, invalidParams(err))
			return err
		}
		if err := json.Unmarshal(params.Arguments[0], &args); err != nil {
			s.sendResponse(msg.ID, nil, invalidParams(err))
			return err
		}
		list := assets.AcceptFile
		if params.Command == CommandAddToReject {
			list = assets.RejectFile
		}
		if err := s.addTerm(args, list); err != nil {
			s.showMessage(MessageTypeError, err.Error())
		}
	default:
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: "unknown command: " + params.Command})
		return nil
	}

	s.sendResponse(msg.ID, nil, nil)
	return nil
}

// runSync installs the packages listed in the configuration in the
// background and reloads the workspace when any succeeded.
func (s *Server) runSync() {
	snap := s.ws.Snapshot()
	if snap.Config == nil || len(snap.Config.Packages()) == 0 {
		s.showMessage(MessageTypeInfo, "No packages are listed in the configuration.")
		return
	}
	refs := snap.Config.Packages()

	s.background("sync", func(ctx context.Context) error {
		syn, err := s.requireSynchronizer()
		if err != nil {
			s.showMessage(MessageTypeError, err.Error())
			return err
		}
		results, err := syn.InstallPackages(ctx, refs)
		if len(results) > 0 {
			s.reload(ctx)
		}
		if err != nil {
			s.showMessage(MessageTypeError, "Package sync failed: "+err.Error())
			return err
		}
		s.showMessage(MessageTypeInfo, fmt.Sprintf("Installed %d package(s).", len(results)))
		return nil
	})
}

// runInstall installs the given linter version in the background. An empty
// version updates to the latest release.
func (s *Server) runInstall(version string) {
	s.background("install", func(ctx context.Context) error {
		syn, err := s.requireSynchronizer()
		if err != nil {
			s.showMessage(MessageTypeError, err.Error())
			return err
		}

		var res *assetsync.Result
		if version != "" || !s.linterInstalled() {
			res, err = syn.Install(ctx, version)
		} else {
			res, err = syn.Update(ctx)
		}
		switch {
		case errors.Is(err, assetsync.ErrUpToDate):
			s.showMessage(MessageTypeInfo, "Vale is up to date.")
			return nil
		case err != nil:
			s.showMessage(MessageTypeError, "Vale install failed: "+err.Error())
			return err
		}
		s.showMessage(MessageTypeInfo, "Installed Vale "+res.Version+".")
		s.refreshOpenDocuments()
		return nil
	})
}

func (s *Server) requireSynchronizer() (*assetsync.Synchronizer, error) {
	syn := s.currentSynchronizer()
	if syn == nil {
		return nil, errors.New("no StylesPath is configured; set StylesPath in .vale.ini")
	}
	return syn, nil
}

// reload rescans the project and refreshes open documents.
func (s *Server) reload(ctx context.Context) {
	before := s.ws.Snapshot()
	snap, err := s.ws.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to reload workspace", "error", err)
		return
	}
	if snap.StylesPath != before.StylesPath {
		s.bind(snap)
	}
	s.refreshOpenDocuments()
}

// addTerm appends a term to a vocabulary. Without an explicit vocabulary
// the first one in effect for the document is used.
func (s *Server) addTerm(args termArgs, list string) error {
	term := strings.TrimSpace(args.Term)
	if term == "" {
		return errors.New("empty term")
	}

	vocab := args.Vocab
	if vocab == "" && args.URI != "" {
		if cfg := s.ws.Resolve(URIToPath(args.URI)); len(cfg.Vocabularies) > 0 {
			vocab = cfg.Vocabularies[0]
		}
	}
	if vocab == "" {
		return fmt.Errorf("no vocabulary is in effect; add 'Vocab = <name>' to .vale.ini")
	}

	if err := s.ws.AddTerm(s.ctx, vocab, list, term); err != nil {
		return err
	}
	s.refreshOpenDocuments()
	return nil
}
