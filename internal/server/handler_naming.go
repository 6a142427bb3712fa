package server

import "github.com/gottingen/sirius-go/internal/catalog"

// ServletNaming answers one naming-resolution lookup by filtering the live
// servlet catalog, per spec.md §4.11 and §6.
func (s *Server) ServletNaming(req NamingRequest) *NamingResponse {
	servlets := s.catalogFSM.State().Naming(catalog.NamingRequest{
		App:    req.App,
		Zones:  req.Zones,
		Envs:   req.Envs,
		Colors: req.Colors,
		Status: req.Status,
	})
	return &NamingResponse{envelope: okEnvelope(), Servlets: servlets}
}
