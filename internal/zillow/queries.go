package zillow

import "encoding/json"

// queryBody はプロバイダーのGraphQLエンドポイントに送るリクエストボディ。
type queryBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// buildQueryBody はクエリ文字列とzpidからリクエストボディJSONを構築する。
func buildQueryBody(query, zpid string) string {
	b, _ := json.Marshal(queryBody{
		Query:     query,
		Variables: map[string]any{"zpid": zpid},
	})
	return string(b)
}

// priceTaxQuery は価格・税履歴クエリのボディを返す。
// クエリ本文はプロバイダーのWebページが発行する内部クエリを手書きで写したもの。
func priceTaxQuery(zpid string) string {
	return buildQueryBody(`query PriceTaxQuery($zpid: ID!) {
  property(zpid: $zpid) {
    zpid
    livingArea
    countyFIPS
    parcelId
    taxHistory {
      time
      taxPaid
      taxIncreaseRate
      value
      valueIncreaseRate
    }
    priceHistory {
      time
      price
      priceChangeRate
      event
      source
      buyerAgent {
        photo {
          url
        }
        profileUrl
        name
      }
      sellerAgent {
        photo {
          url
        }
        profileUrl
        name
      }
      postingIsRental
    }
    currency
  }
}`, zpid)
}

// fullRenderQuery は物件詳細クエリのボディを返す。
// ページ全体レンダリング用の内部クエリのうち、APIが公開するフィールドを要求する。
func fullRenderQuery(zpid string) string {
	return buildQueryBody(`query ForSaleFullRenderQuery($zpid: ID!) {
  property(zpid: $zpid) {
    id
    zpid
    daysOnZillow
    dateSold
    datePosted
    lastSoldPrice
    isZillowOwned
    currency
    city
    state
    country
    zipcode
    regionString
    streetAddress
    abbreviatedAddress
    propertyTypeDimension
    hdpTypeDimension
    listingTypeDimension
    featuredListingTypeDimension
    brokerIdDimension
    keystoneHomeStatus
    rentalApplicationsAcceptedType
    yearBuilt
    boroughId
    brokerId
    brokerageName
    providerListingID
    postingProductType
    rentalRefreshTime
    isFeatured
    rentalDateAvailable
    newConstructionType
    comingSoonOnMarketDate
    listingStatusChangeDate
    isPreforeclosureAuction
    taxAssessedValue
    taxAssessedYear
    priceChange
    isNonOwnerOccupied
    isRecentStatusChange
    forecast
    homeStatus
    homeType
    description
    isUndisclosedAddress
    isInstantOfferEnabled
    rentZestimate
    restimateHighPercent
    restimateLowPercent
    restimateMinus30
    lotSize
    zestimate
    zestimateHighPercent
    zestimateLowPercent
    zestimateMinus30
    price
    bedrooms
    bathrooms
    livingArea
    hoaFee
    propertyTaxRate
    countyFIPS
    parcelId
    hdpUrl
    postingUrl
    latitude
    longitude
    photoCount
    address {
      city
      state
      zipcode
      streetAddress
      community
      subdivision
      unitPrefix
      unitNumber
    }
    listing_sub_type {
      is_FSBO
      is_FSBA
      is_pending
      is_newHome
      is_foreclosure
      is_bankOwned
      is_forAuction
      is_comingSoon
    }
    foreclosureTypes {
      isBankOwned
      wasREO
      isForeclosedNFS
      isAnyForeclosure
      isPreforeclosure
      wasNonRetailAuction
      wasForeclosed
      wasDefault
    }
    homeFacts {
      aboveFactsAndFeaturesCategories {
        categoryName
        categoryFacts {
          factLabel
          factValue
        }
      }
      atAGlanceFacts {
        factLabel
        factValue
      }
      categoryDetails {
        categoryGroupName
        categories {
          categoryName
          categoryFacts {
            factLabel
            factValue
          }
        }
      }
    }
    smallPhotos: photos(size: S) {
      width
      height
      url
      caption
    }
    mediumPhotos: photos(size: M) {
      width
      height
      url
      caption
    }
    hugePhotos: photos(size: XXL) {
      width
      height
      url
      caption
    }
  }
}`, zpid)
}
