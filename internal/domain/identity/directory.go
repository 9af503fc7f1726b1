package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/medmeet/medmeet/internal/domain/scheduling"
)

// identityLookup is the slice of Service the scheduling domain
// reads from.
type identityLookup interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	ResolveProviderByName(ctx context.Context, name string) (*Provider, error)
	ResolvePatientByName(ctx context.Context, name string) (*Patient, error)
}

// DirectoryAdapter adapts Service to scheduling.Directory,
// keeping the scheduling package free of identity imports.
type DirectoryAdapter struct {
	svc identityLookup
}

func NewDirectoryAdapter(svc identityLookup) *DirectoryAdapter {
	return &DirectoryAdapter{svc: svc}
}

func (a *DirectoryAdapter) Provider(ctx context.Context, id uuid.UUID) (scheduling.ProviderInfo, error) {
	p, err := a.svc.GetProvider(ctx, id)
	if err != nil {
		return scheduling.ProviderInfo{}, err
	}
	return providerInfo(p), nil
}

func (a *DirectoryAdapter) Patient(ctx context.Context, id uuid.UUID) (scheduling.PatientInfo, error) {
	p, err := a.svc.GetPatient(ctx, id)
	if err != nil {
		return scheduling.PatientInfo{}, err
	}
	return patientInfo(p), nil
}

func (a *DirectoryAdapter) ProviderByName(ctx context.Context, name string) (scheduling.ProviderInfo, error) {
	p, err := a.svc.ResolveProviderByName(ctx, name)
	if err != nil {
		return scheduling.ProviderInfo{}, err
	}
	return providerInfo(p), nil
}

func (a *DirectoryAdapter) PatientByName(ctx context.Context, name string) (scheduling.PatientInfo, error) {
	p, err := a.svc.ResolvePatientByName(ctx, name)
	if err != nil {
		return scheduling.PatientInfo{}, err
	}
	return patientInfo(p), nil
}

func providerInfo(p *Provider) scheduling.ProviderInfo {
	return scheduling.ProviderInfo{ID: p.ID, Name: p.Name, Duration: p.ConsultationDuration()}
}

func patientInfo(p *Patient) scheduling.PatientInfo {
	return scheduling.PatientInfo{ID: p.ID, Name: p.Name}
}

var _ scheduling.Directory = (*DirectoryAdapter)(nil)
