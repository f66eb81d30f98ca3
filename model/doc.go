/*

Package model provides latent factor models for rating prediction.

An Algorithm learns factors from a read-only view of a training set. The models shipped include:

	* mf: plain matrix factorization trained by SGD
	* biased_mf: matrix factorization with bias terms
	* svdpp: SVD++, biased factorization with implicit feedback

*/
package model
