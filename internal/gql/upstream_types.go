package gql

import "github.com/graphql-go/graphql"

// このファイルはプロバイダーのドキュメント構造をGraphQL型として写す。
// フィールド名はアップストリームのJSONキーと一致しており、
// docToMapで展開したmapをデフォルトリゾルバーがそのまま解決する。

var agentPhotoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowAgentPhoto",
	Fields: graphql.Fields{
		"url": &graphql.Field{Type: graphql.String},
	},
})

var agentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowAgent",
	Fields: graphql.Fields{
		"photo":      &graphql.Field{Type: agentPhotoType},
		"profileUrl": &graphql.Field{Type: graphql.String},
		"name":       &graphql.Field{Type: graphql.String},
	},
})

var taxEventType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowTaxEvent",
	Fields: graphql.Fields{
		"time":              &graphql.Field{Type: dateType},
		"taxPaid":           &graphql.Field{Type: graphql.Float},
		"taxIncreaseRate":   &graphql.Field{Type: graphql.Float},
		"value":             &graphql.Field{Type: graphql.Float},
		"valueIncreaseRate": &graphql.Field{Type: graphql.Float},
	},
})

var priceEventType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowPriceEvent",
	Fields: graphql.Fields{
		"time":            &graphql.Field{Type: dateType},
		"price":           &graphql.Field{Type: graphql.Float},
		"priceChangeRate": &graphql.Field{Type: graphql.Float},
		"event":           &graphql.Field{Type: graphql.String},
		"source":          &graphql.Field{Type: graphql.String},
		"buyerAgent":      &graphql.Field{Type: agentType},
		"sellerAgent":     &graphql.Field{Type: agentType},
		"postingIsRental": &graphql.Field{Type: graphql.Boolean},
	},
})

// pricingType は価格・税履歴ドキュメントの型。
var pricingType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowPricing",
	Fields: graphql.Fields{
		"zpid":         &graphql.Field{Type: graphql.ID},
		"livingArea":   &graphql.Field{Type: graphql.Float},
		"countyFIPS":   &graphql.Field{Type: graphql.String},
		"parcelId":     &graphql.Field{Type: graphql.String},
		"taxHistory":   &graphql.Field{Type: graphql.NewList(taxEventType)},
		"priceHistory": &graphql.Field{Type: graphql.NewList(priceEventType)},
		"currency":     &graphql.Field{Type: graphql.String},
	},
})

var propertyAddressType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowPropertyAddress",
	Fields: graphql.Fields{
		"city":          &graphql.Field{Type: graphql.String},
		"state":         &graphql.Field{Type: graphql.String},
		"zipcode":       &graphql.Field{Type: graphql.String},
		"streetAddress": &graphql.Field{Type: graphql.String},
		"community":     &graphql.Field{Type: graphql.String},
		"subdivision":   &graphql.Field{Type: graphql.String},
		"unitPrefix":    &graphql.Field{Type: graphql.String},
		"unitNumber":    &graphql.Field{Type: graphql.String},
	},
})

var listingSubTypeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowListingSubType",
	Fields: graphql.Fields{
		"is_FSBO":        &graphql.Field{Type: graphql.Boolean},
		"is_FSBA":        &graphql.Field{Type: graphql.Boolean},
		"is_pending":     &graphql.Field{Type: graphql.Boolean},
		"is_newHome":     &graphql.Field{Type: graphql.Boolean},
		"is_foreclosure": &graphql.Field{Type: graphql.Boolean},
		"is_bankOwned":   &graphql.Field{Type: graphql.Boolean},
		"is_forAuction":  &graphql.Field{Type: graphql.Boolean},
		"is_comingSoon":  &graphql.Field{Type: graphql.Boolean},
	},
})

var foreclosureTypesType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowForeclosureTypes",
	Fields: graphql.Fields{
		"isBankOwned":         &graphql.Field{Type: graphql.Boolean},
		"wasREO":              &graphql.Field{Type: graphql.Boolean},
		"isForeclosedNFS":     &graphql.Field{Type: graphql.Boolean},
		"isAnyForeclosure":    &graphql.Field{Type: graphql.Boolean},
		"isPreforeclosure":    &graphql.Field{Type: graphql.Boolean},
		"wasNonRetailAuction": &graphql.Field{Type: graphql.Boolean},
		"wasForeclosed":       &graphql.Field{Type: graphql.Boolean},
		"wasDefault":          &graphql.Field{Type: graphql.Boolean},
	},
})

var homeFactType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowHomeFact",
	Fields: graphql.Fields{
		"factLabel": &graphql.Field{Type: graphql.String},
		"factValue": &graphql.Field{Type: graphql.String},
	},
})

var factCategoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowFactCategory",
	Fields: graphql.Fields{
		"categoryName":  &graphql.Field{Type: graphql.String},
		"categoryFacts": &graphql.Field{Type: graphql.NewList(homeFactType)},
	},
})

var categoryDetailType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowCategoryDetail",
	Fields: graphql.Fields{
		"categoryGroupName": &graphql.Field{Type: graphql.String},
		"categories":        &graphql.Field{Type: graphql.NewList(factCategoryType)},
	},
})

var homeFactsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowHomeFacts",
	Fields: graphql.Fields{
		"aboveFactsAndFeaturesCategories": &graphql.Field{Type: graphql.NewList(factCategoryType)},
		"atAGlanceFacts":                  &graphql.Field{Type: graphql.NewList(homeFactType)},
		"categoryDetails":                 &graphql.Field{Type: graphql.NewList(categoryDetailType)},
	},
})

var photoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowPhoto",
	Fields: graphql.Fields{
		"width":   &graphql.Field{Type: graphql.Int},
		"height":  &graphql.Field{Type: graphql.Int},
		"url":     &graphql.Field{Type: graphql.String},
		"caption": &graphql.Field{Type: graphql.String},
	},
})

// propertyType は物件詳細ドキュメントの型。
var propertyType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowProperty",
	Fields: graphql.Fields{
		"id":                           &graphql.Field{Type: graphql.ID},
		"zpid":                         &graphql.Field{Type: graphql.ID},
		"daysOnZillow":                 &graphql.Field{Type: graphql.Int},
		"dateSold":                     &graphql.Field{Type: dateType},
		"datePosted":                   &graphql.Field{Type: dateType},
		"lastSoldPrice":                &graphql.Field{Type: graphql.Float},
		"isZillowOwned":                &graphql.Field{Type: graphql.Boolean},
		"currency":                     &graphql.Field{Type: graphql.String},
		"city":                         &graphql.Field{Type: graphql.String},
		"state":                        &graphql.Field{Type: graphql.String},
		"country":                      &graphql.Field{Type: graphql.String},
		"zipcode":                      &graphql.Field{Type: graphql.String},
		"regionString":                 &graphql.Field{Type: graphql.String},
		"streetAddress":                &graphql.Field{Type: graphql.String},
		"abbreviatedAddress":           &graphql.Field{Type: graphql.String},
		"propertyTypeDimension":        &graphql.Field{Type: graphql.String},
		"hdpTypeDimension":             &graphql.Field{Type: graphql.String},
		"listingTypeDimension":         &graphql.Field{Type: graphql.String},
		"featuredListingTypeDimension": &graphql.Field{Type: graphql.String},
		"brokerIdDimension":            &graphql.Field{Type: graphql.String},
		"keystoneHomeStatus":           &graphql.Field{Type: graphql.String},
		"rentalApplicationsAcceptedType": &graphql.Field{
			Type: graphql.String,
		},
		"yearBuilt":               &graphql.Field{Type: graphql.Int},
		"boroughId":               &graphql.Field{Type: graphql.Int},
		"brokerId":                &graphql.Field{Type: graphql.Int},
		"brokerageName":           &graphql.Field{Type: graphql.String},
		"providerListingID":       &graphql.Field{Type: graphql.String},
		"postingProductType":      &graphql.Field{Type: graphql.String},
		"rentalRefreshTime":       &graphql.Field{Type: dateType},
		"isFeatured":              &graphql.Field{Type: graphql.Boolean},
		"rentalDateAvailable":     &graphql.Field{Type: dateType},
		"newConstructionType":     &graphql.Field{Type: graphql.String},
		"comingSoonOnMarketDate":  &graphql.Field{Type: dateType},
		"listingStatusChangeDate": &graphql.Field{Type: dateType},
		"isPreforeclosureAuction": &graphql.Field{Type: graphql.Boolean},
		"taxAssessedValue":        &graphql.Field{Type: graphql.Float},
		"taxAssessedYear":         &graphql.Field{Type: graphql.Int},
		"priceChange":             &graphql.Field{Type: graphql.Float},
		"isNonOwnerOccupied":      &graphql.Field{Type: graphql.Boolean},
		"isRecentStatusChange":    &graphql.Field{Type: graphql.Boolean},
		"forecast":                &graphql.Field{Type: graphql.String},
		"homeStatus":              &graphql.Field{Type: graphql.String},
		"homeType":                &graphql.Field{Type: graphql.String},
		"description":             &graphql.Field{Type: graphql.String},
		"isUndisclosedAddress":    &graphql.Field{Type: graphql.Boolean},
		"isInstantOfferEnabled":   &graphql.Field{Type: graphql.Boolean},
		"rentZestimate":           &graphql.Field{Type: graphql.Float},
		"restimateHighPercent":    &graphql.Field{Type: graphql.String},
		"restimateLowPercent":     &graphql.Field{Type: graphql.String},
		"restimateMinus30":        &graphql.Field{Type: graphql.Float},
		"lotSize":                 &graphql.Field{Type: graphql.Float},
		"zestimate":               &graphql.Field{Type: graphql.Float},
		"zestimateHighPercent":    &graphql.Field{Type: graphql.String},
		"zestimateLowPercent":     &graphql.Field{Type: graphql.String},
		"zestimateMinus30":        &graphql.Field{Type: graphql.String},
		"price":                   &graphql.Field{Type: graphql.Float},
		"bedrooms":                &graphql.Field{Type: graphql.Float},
		"bathrooms":               &graphql.Field{Type: graphql.Float},
		"livingArea":              &graphql.Field{Type: graphql.Float},
		"hoaFee":                  &graphql.Field{Type: graphql.Float},
		"propertyTaxRate":         &graphql.Field{Type: graphql.Float},
		"countyFIPS":              &graphql.Field{Type: graphql.String},
		"parcelId":                &graphql.Field{Type: graphql.String},
		"hdpUrl":                  &graphql.Field{Type: graphql.String},
		"postingUrl":              &graphql.Field{Type: graphql.String},
		"latitude":                &graphql.Field{Type: graphql.Float},
		"longitude":               &graphql.Field{Type: graphql.Float},
		"photoCount":              &graphql.Field{Type: graphql.Int},
		"address":                 &graphql.Field{Type: propertyAddressType},
		"listing_sub_type":        &graphql.Field{Type: listingSubTypeType},
		"foreclosureTypes":        &graphql.Field{Type: foreclosureTypesType},
		"homeFacts":               &graphql.Field{Type: homeFactsType},
		"smallPhotos":             &graphql.Field{Type: graphql.NewList(photoType)},
		"mediumPhotos":            &graphql.Field{Type: graphql.NewList(photoType)},
		"hugePhotos":              &graphql.Field{Type: graphql.NewList(photoType)},
	},
})

// addressType は住所検索・地図検索の結果1件の型。
var addressType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ZillowAddress",
	Fields: graphql.Fields{
		"zpid":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"city":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"latitude":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"longitude": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"state":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"street":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"zipcode":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},

		"streetAddress":    &graphql.Field{Type: graphql.String},
		"price":            &graphql.Field{Type: graphql.Float},
		"dateSold":         &graphql.Field{Type: dateType},
		"bathrooms":        &graphql.Field{Type: graphql.Float},
		"bedrooms":         &graphql.Field{Type: graphql.Float},
		"livingArea":       &graphql.Field{Type: graphql.Float},
		"yearBuilt":        &graphql.Field{Type: graphql.Int},
		"lotSize":          &graphql.Field{Type: graphql.Float},
		"homeType":         &graphql.Field{Type: graphql.String},
		"homeStatus":       &graphql.Field{Type: graphql.String},
		"photoCount":       &graphql.Field{Type: graphql.Int},
		"imageLink":        &graphql.Field{Type: graphql.String},
		"daysOnZillow":     &graphql.Field{Type: graphql.Float},
		"isFeatured":       &graphql.Field{Type: graphql.Boolean},
		"brokerId":         &graphql.Field{Type: graphql.Int},
		"zestimate":        &graphql.Field{Type: graphql.Float},
		"isUnmappable":     &graphql.Field{Type: graphql.Boolean},
		"mediumImageLink":  &graphql.Field{Type: graphql.String},
		"homeStatusForHDP": &graphql.Field{Type: graphql.String},
		"priceForHDP":      &graphql.Field{Type: graphql.Float},
		"festimate":        &graphql.Field{Type: graphql.Float},
		"hiResImageLink":   &graphql.Field{Type: graphql.String},
		"currency":         &graphql.Field{Type: graphql.String},
		"country":          &graphql.Field{Type: graphql.String},
	},
})
