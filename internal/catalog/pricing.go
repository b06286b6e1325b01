package catalog

import "github.com/darzi-doorstep/darzi-backend/pkg/types"

// StartingPrice is the lowest variant price, or the base price when the service has no variants.
func StartingPrice(s Service) types.Rupees {
	if len(s.Variants) == 0 {
		return s.BasePrice
	}
	lowest := s.Variants[0].Price
	for _, v := range s.Variants[1:] {
		if v.Price < lowest {
			lowest = v.Price
		}
	}
	return lowest
}
