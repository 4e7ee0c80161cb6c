package handler

import (
	"context"

	"github.com/eleccia/chatbot-engine/internal/model"
)

type noopConversations struct{}

func (noopConversations) SaveConversation(ctx context.Context, conv *model.ArchivedConversation) error {
	return nil
}

type noopContent struct{}

func (noopContent) MainServices() []model.ServiceInfo { return nil }

func (noopContent) SearchServices(ctx context.Context, query string, topK int) ([]model.ServiceInfo, error) {
	return nil, nil
}

func (noopContent) PlenoMembers() []model.PlenoMember { return nil }

func (noopContent) InstitutionalInfo(topic string) (string, bool) { return "", false }

func (noopContent) Answer(ctx context.Context, question, topic string) (string, error) {
	return "", context.Canceled
}

type noopRepo struct{}

func (noopRepo) FindCandidates(ctx context.Context, query string) ([]model.Candidate, error) {
	return nil, nil
}

func (noopRepo) FindCandidatesBySurnames(ctx context.Context, nombres, paterno, materno string) ([]model.Candidate, error) {
	return nil, nil
}

func (noopRepo) ElectionsForCandidate(ctx context.Context, c model.Candidate) ([]string, error) {
	return nil, nil
}

func (noopRepo) CandidateElectionDetail(ctx context.Context, c model.Candidate, eleccion string) (string, error) {
	return "", nil
}

func (noopRepo) SearchMilestones(ctx context.Context, proceso, query string) ([]model.Milestone, error) {
	return nil, nil
}
