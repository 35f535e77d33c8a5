package meta

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
	"github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/metaclient"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	collectionCampaigns = "campaigns"
	collectionAdSets    = "adsets"
	collectionAds       = "ads"
)

type collection struct {
	edge     string
	fields   string
	statuses []string
}

var hierarchyCollections = []collection{
	{edge: collectionCampaigns, fields: metadomain.CampaignFields, statuses: metadomain.CampaignStatuses},
	{edge: collectionAdSets, fields: metadomain.AdSetFields, statuses: metadomain.AdSetStatuses},
	{edge: collectionAds, fields: metadomain.AdFields, statuses: metadomain.AdStatuses},
}

func (s *MetaIntegrator) collectionParams(c collection) url.Values {
	statuses, _ := json.Marshal(c.statuses)

	params := url.Values{}
	params.Set("fields", c.fields)
	params.Set("effective_status", string(statuses))
	params.Set("limit", strconv.Itoa(s.cfg.Meta.PageLimit))
	return params
}

func (s *MetaIntegrator) collectionPath(ref string, c collection) string {
	return ref + "/" + c.edge
}

// FetchEntityHierarchy busca campanhas, conjuntos e anúncios numa única chamada batch.
// Falha do batch como um todo cai para três buscas sequenciais; falha de uma
// sub-resposta refaz só aquela coleção. O resultado informa quais coleções vieram completas.
func (s *MetaIntegrator) FetchEntityHierarchy(ctx context.Context, externalID string) (*domain.EntityHierarchy, error) {
	ref := accountRef(externalID)
	fields := logrus.Fields{"account_id": externalID}

	requests := make([]metadomain.BatchRequest, 0, len(hierarchyCollections))
	for _, c := range hierarchyCollections {
		requests = append(requests, metadomain.BatchRequest{
			Method:      http.MethodGet,
			RelativeURL: s.collectionPath(ref, c) + "?" + s.collectionParams(c).Encode(),
		})
	}

	var items []metadomain.BatchResponseItem
	err := s.fetcher.Do(ctx, 0, fields, func(ctx context.Context) error {
		var err error
		items, err = s.Client.PostBatch(ctx, requests)
		return err
	})
	if err != nil {
		if metaclient.IsTokenExpired(err) {
			return nil, s.upstreamError("hierarchy", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logrus.WithFields(fields).WithError(err).Warn("hierarchy: batch falhou, buscando coleções sequencialmente")
		metrics.BatchFallbacks.Inc()
		items = make([]metadomain.BatchResponseItem, len(hierarchyCollections))
	}

	campaigns := resolveCollection[metadomain.Campaign](ctx, s, ref, hierarchyCollections[0], &items[0])
	adSets := resolveCollection[metadomain.AdSet](ctx, s, ref, hierarchyCollections[1], &items[1])
	ads := resolveCollection[metadomain.Ad](ctx, s, ref, hierarchyCollections[2], &items[2])

	for _, failure := range []error{campaigns.Err, adSets.Err, ads.Err} {
		if failure != nil && metaclient.IsTokenExpired(failure) {
			return nil, s.upstreamError("hierarchy", failure)
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hierarchy := &domain.EntityHierarchy{
		Campaigns: make([]domain.Campaign, 0, len(campaigns.Records)),
		AdSets:    make([]domain.AdSet, 0, len(adSets.Records)),
		Ads:       make([]domain.Ad, 0, len(ads.Records)),
		Health: domain.FetchHealth{
			CampaignsOK: campaigns.Success,
			AdSetsOK:    adSets.Success,
			AdsOK:       ads.Success,
		},
	}

	for i := range campaigns.Records {
		hierarchy.Campaigns = append(hierarchy.Campaigns, FactoryCampaign(&campaigns.Records[i]))
	}
	for i := range adSets.Records {
		hierarchy.AdSets = append(hierarchy.AdSets, FactoryAdSet(&adSets.Records[i]))
	}
	for i := range ads.Records {
		hierarchy.Ads = append(hierarchy.Ads, FactoryAd(&ads.Records[i]))
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"campaigns":    len(hierarchy.Campaigns),
		"adsets":       len(hierarchy.AdSets),
		"ads":          len(hierarchy.Ads),
		"campaigns_ok": hierarchy.Health.CampaignsOK,
		"adsets_ok":    hierarchy.Health.AdSetsOK,
		"ads_ok":       hierarchy.Health.AdsOK,
	}).Debug("hierarchy: entidades carregadas")

	return hierarchy, nil
}

// resolveCollection usa a sub-resposta do batch quando ela é válida, continuando a
// paginação se houver cursor; caso contrário busca a coleção inteira sequencialmente.
func resolveCollection[T any](ctx context.Context, s *MetaIntegrator, ref string, c collection, item *metadomain.BatchResponseItem) metaclient.FetchResult[T] {
	fields := logrus.Fields{"account_id": ref, "collection": c.edge}

	page, err := decodeBatchItem[T](item)
	if err != nil {
		if item.Code != 0 {
			logrus.WithFields(fields).WithError(err).Warn("hierarchy: sub-resposta inválida, buscando coleção sequencialmente")
		}
		return fetchSequential[T](ctx, s, ref, c)
	}

	result := metaclient.FetchResult[T]{Records: page.Data, Success: true, Pages: 1}
	if page.Paging.Next == "" {
		return result
	}

	if s.cfg.Meta.MaxPages == 1 {
		logrus.WithFields(fields).Error("meta: limite de páginas atingido, resultado truncado")
		result.Success = false
		result.Truncated = true
		result.Err = metaclient.ErrPageLimitReached
		return result
	}

	if err := s.fetcher.Sleep(ctx, s.cfg.Meta.InterRequestDelay); err != nil {
		result.Success = false
		result.Err = err
		return result
	}

	rest := metaclient.FetchAll[T](ctx, s.fetcher, page.Paging.Next, remainingPages(s.cfg.Meta.MaxPages), s.cfg.Meta.MaxGenericRetries)
	result.Records = append(result.Records, rest.Records...)
	result.Pages += rest.Pages
	result.Success = rest.Success
	result.Truncated = rest.Truncated
	result.Err = rest.Err

	return result
}

func fetchSequential[T any](ctx context.Context, s *MetaIntegrator, ref string, c collection) metaclient.FetchResult[T] {
	if err := s.fetcher.Sleep(ctx, s.cfg.Meta.InterRequestDelay); err != nil {
		return metaclient.FetchResult[T]{Err: err}
	}

	rawURL := s.Client.GraphURL(s.collectionPath(ref, c), s.collectionParams(c))
	return metaclient.FetchAll[T](ctx, s.fetcher, rawURL, s.cfg.Meta.MaxPages, s.cfg.Meta.MaxGenericRetries)
}

// decodeBatchItem aceita apenas sub-respostas 200 com corpo de página válido.
func decodeBatchItem[T any](item *metadomain.BatchResponseItem) (*metadomain.Page[T], error) {
	if item == nil || item.Code == 0 {
		return nil, fmt.Errorf("sub-resposta ausente")
	}

	if item.Code != http.StatusOK {
		return nil, fmt.Errorf("sub-resposta com status %d", item.Code)
	}

	var page metadomain.Page[T]
	if err := json.Unmarshal([]byte(item.Body), &page); err != nil {
		return nil, fmt.Errorf("%w: %v", metaclient.ErrDecode, err)
	}

	if !page.Error.IsEmpty() {
		return nil, fmt.Errorf("sub-resposta com erro %d: %s", page.Error.Code, page.Error.Message)
	}

	return &page, nil
}

// remainingPages desconta a página que já veio no batch; zero significa sem limite.
func remainingPages(maxPages int) int {
	if maxPages <= 0 {
		return 0
	}
	return maxPages - 1
}
