package catalog

import "github.com/darzi-doorstep/darzi-backend/pkg/enums"

const (
	male   = enums.ServiceCategoryMale
	female = enums.ServiceCategoryFemale
	other  = enums.ServiceCategoryOther
)

var defaultServices = []Service{
	// men
	{
		ID: "male-shirt", Name: "Shirt — Formal/Casual", Category: male, Subcategory: "shirts",
		BasePrice: 149, Description: "Fitting, sleeve and length alterations for formal and casual shirts.",
		Turnaround: "2-3 days", Image: "/images/services/male-shirt.webp",
		Variants: []Variant{{Name: "Sleeves", Price: 99}, {Name: "Side Fitting", Price: 129}, {Name: "Full Fitting", Price: 199}},
	},
	{
		ID: "male-jeans", Name: "Jeans", Category: male, Subcategory: "trousers",
		BasePrice: 129, Description: "Hemming, waist and taper alterations for denim.",
		Turnaround: "2 days", Image: "/images/services/male-jeans.webp",
		Variants: []Variant{{Name: "Length", Price: 91}, {Name: "Waist", Price: 149}, {Name: "Tapering", Price: 179}},
	},
	{
		ID: "male-trousers", Name: "Formal Trousers", Category: male, Subcategory: "trousers",
		BasePrice: 139, Description: "Length, waist and seat adjustments with invisible hemming.",
		Turnaround: "2 days", Image: "/images/services/male-trousers.webp",
		Variants: []Variant{{Name: "Length", Price: 99}, {Name: "Waist", Price: 149}, {Name: "Full Fitting", Price: 229}},
	},
	{
		ID: "male-suit", Name: "Suit / Blazer", Category: male, Subcategory: "suits",
		BasePrice: 599, Description: "Shoulder, sleeve and body alterations for suits and blazers.",
		Turnaround: "4-5 days", Image: "/images/services/male-suit.webp",
		Variants: []Variant{{Name: "Sleeves", Price: 349}, {Name: "Body Fitting", Price: 599}, {Name: "Complete Refit", Price: 999}},
	},
	{
		ID: "male-kurta", Name: "Kurta / Sherwani", Category: male, Subcategory: "ethnic",
		BasePrice: 249, Description: "Fitting and length alterations for kurtas and sherwanis.",
		Turnaround: "3 days", Image: "/images/services/male-kurta.webp",
		Variants: []Variant{{Name: "Length", Price: 149}, {Name: "Fitting", Price: 249}, {Name: "Sherwani Fitting", Price: 699}},
	},
	{
		ID: "male-stitching-shirt", Name: "Custom Shirt Stitching", Category: male, Subcategory: "stitching",
		BasePrice: 699, Description: "Made-to-measure shirt stitched from your fabric.",
		Turnaround: "7 days", Image: "/images/services/male-stitching-shirt.webp",
	},

	// women
	{
		ID: "female-blouse", Name: "Blouse Stitching", Category: female, Subcategory: "ethnic",
		BasePrice: 499, Description: "Stitching of saree blouses, lined or unlined, with custom necklines.",
		Turnaround: "5-7 days", Image: "/images/services/female-blouse.webp",
		Variants: []Variant{{Name: "Simple", Price: 499}, {Name: "Lined", Price: 699}, {Name: "Designer", Price: 1199}},
	},
	{
		ID: "female-saree", Name: "Saree Fall & Pico", Category: female, Subcategory: "ethnic",
		BasePrice: 149, Description: "Fall attachment and pico edging for sarees.",
		Turnaround: "2 days", Image: "/images/services/female-saree.webp",
		Variants: []Variant{{Name: "Pico", Price: 99}, {Name: "Fall", Price: 119}, {Name: "Fall + Pico", Price: 179}},
	},
	{
		ID: "female-kurti", Name: "Kurti / Salwar Suit", Category: female, Subcategory: "ethnic",
		BasePrice: 199, Description: "Fitting, length and sleeve alterations for kurtis and suits.",
		Turnaround: "3 days", Image: "/images/services/female-kurti.webp",
		Variants: []Variant{{Name: "Length", Price: 129}, {Name: "Fitting", Price: 199}, {Name: "Full Set Fitting", Price: 349}},
	},
	{
		ID: "female-lehenga", Name: "Lehenga", Category: female, Subcategory: "bridal",
		BasePrice: 899, Description: "Waist, length and can-can alterations for lehengas.",
		Turnaround: "5-7 days", Image: "/images/services/female-lehenga.webp",
		Variants: []Variant{{Name: "Waist", Price: 499}, {Name: "Length", Price: 599}, {Name: "Complete Refit", Price: 1499}},
	},
	{
		ID: "female-dress", Name: "Dress / Gown", Category: female, Subcategory: "western",
		BasePrice: 299, Description: "Hemming, strap and side-seam alterations for dresses and gowns.",
		Turnaround: "3 days", Image: "/images/services/female-dress.webp",
		Variants: []Variant{{Name: "Hem", Price: 179}, {Name: "Straps", Price: 149}, {Name: "Full Fitting", Price: 399}},
	},
	{
		ID: "female-jeans", Name: "Women's Jeans", Category: female, Subcategory: "western",
		BasePrice: 129, Description: "Hemming and waist alterations for denim.",
		Turnaround: "2 days", Image: "/images/services/female-jeans.webp",
		Variants: []Variant{{Name: "Length", Price: 91}, {Name: "Waist", Price: 149}},
	},

	// other
	{
		ID: "other-zipper", Name: "Zipper Replacement", Category: other, Subcategory: "repairs",
		BasePrice: 99, Description: "Zip replacement on trousers, jackets, bags and cushions.",
		Turnaround: "1-2 days", Image: "/images/services/other-zipper.webp",
		Variants: []Variant{{Name: "Trouser Zip", Price: 99}, {Name: "Jacket Zip", Price: 249}},
	},
	{
		ID: "other-darning", Name: "Darning & Patch Work", Category: other, Subcategory: "repairs",
		BasePrice: 79, Description: "Invisible darning and patch repairs for tears and holes.",
		Turnaround: "2 days", Image: "/images/services/other-darning.webp",
	},
	{
		ID: "other-curtains", Name: "Curtain Stitching", Category: other, Subcategory: "home",
		BasePrice: 249, Description: "Stitching per panel with eyelet or pleated heading.",
		Turnaround: "5 days", Image: "/images/services/other-curtains.webp",
		Variants: []Variant{{Name: "Eyelet Panel", Price: 249}, {Name: "Pleated Panel", Price: 299}},
	},
	{
		ID: "other-cushion", Name: "Cushion Covers", Category: other, Subcategory: "home",
		BasePrice: 99, Description: "Cushion covers stitched to size, with or without zip.",
		Turnaround: "3 days", Image: "/images/services/other-cushion.webp",
	},
}
